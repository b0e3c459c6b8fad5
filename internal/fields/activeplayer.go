package fields

import (
	"fieldsync/internal/bitpack"
	"fieldsync/internal/updatefield"
)

var (
	skillInfoSchema        = updatefield.NewSchema("SkillInfo", 1799)
	restInfoSchema         = updatefield.NewSchema("RestInfo", 3)
	pvpInfoSchema          = updatefield.NewSchema("PVPInfo", 13)
	traitConfigSchema      = updatefield.NewSchema("TraitConfig", 10)
	bankTabSettingsSchema  = updatefield.NewSchema("BankTabSettings", 5)
	activePlayerDataSchema = updatefield.NewSchema("ActivePlayerData", 1463)
)

const (
	skillSlots         = 256
	restTypes          = 2
	invSlots           = 141
	exploredZoneWords  = 240
	spellSchools       = 7
	weaponSlots        = 3
	buybackSlots       = 12
	combatRatings      = 32
	reagentMaskWords   = 4
	professionSlots    = 2
	bagSlots           = 5
	bankBagSlots       = 7
	questCompletedBits = 875

	traitNameBits   = 9
	bankNameBits    = 7
	bankIconBits    = 9
	bankDescBits    = 14
	restrictionBits = 5
)

// SkillInfo holds the skill lines of a player as parallel arrays indexed
// by skill slot.
type SkillInfo struct {
	updatefield.Record
	SkillLineID       *updatefield.FixedArray[uint16]
	SkillStep         *updatefield.FixedArray[uint16]
	SkillRank         *updatefield.FixedArray[uint16]
	SkillStartingRank *updatefield.FixedArray[uint16]
	SkillMaxRank      *updatefield.FixedArray[uint16]
	SkillTempBonus    *updatefield.FixedArray[int16]
	SkillPermBonus    *updatefield.FixedArray[uint16]
}

func NewSkillInfo() *SkillInfo {
	s := &SkillInfo{}
	l := skillInfoSchema.Begin(&s.Record)
	s.SkillLineID = updatefield.NewFixedArray[uint16](l.Array(-1, skillSlots))
	s.SkillStep = updatefield.NewFixedArray[uint16](l.Array(-1, skillSlots))
	s.SkillRank = updatefield.NewFixedArray[uint16](l.Array(-1, skillSlots))
	s.SkillStartingRank = updatefield.NewFixedArray[uint16](l.Array(-1, skillSlots))
	s.SkillMaxRank = updatefield.NewFixedArray[uint16](l.Array(-1, skillSlots))
	s.SkillTempBonus = updatefield.NewFixedArray[int16](l.Array(-1, skillSlots))
	s.SkillPermBonus = updatefield.NewFixedArray[uint16](l.Array(-1, skillSlots))
	l.End()
	return s
}

// SetSkill fills one skill slot.
func (s *SkillInfo) SetSkill(slot int, line, rank, maxRank uint16) {
	s.SkillLineID.Set(slot, line)
	s.SkillRank.Set(slot, rank)
	s.SkillStartingRank.Set(slot, 1)
	s.SkillMaxRank.Set(slot, maxRank)
}

func (s *SkillInfo) unsigned() []*updatefield.FixedArray[uint16] {
	return []*updatefield.FixedArray[uint16]{s.SkillLineID, s.SkillStep, s.SkillRank, s.SkillStartingRank, s.SkillMaxRank}
}

func (s *SkillInfo) WriteCreate(w *bitpack.Writer) {
	for i := 0; i < skillSlots; i++ {
		for _, a := range s.unsigned() {
			w.WriteUint16(a.Get(i))
		}
		w.WriteInt16(s.SkillTempBonus.Get(i))
		w.WriteUint16(s.SkillPermBonus.Get(i))
	}
}

func (s *SkillInfo) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(skillInfoSchema, s.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	for _, a := range s.unsigned() {
		a.EachChanged(m, func(_ int, v uint16) { w.WriteUint16(v) })
	}
	s.SkillTempBonus.EachChanged(m, func(_ int, v int16) { w.WriteInt16(v) })
	s.SkillPermBonus.EachChanged(m, func(_ int, v uint16) { w.WriteUint16(v) })
}

type RestInfo struct {
	updatefield.Record
	Threshold *updatefield.Scalar[uint32]
	StateID   *updatefield.Scalar[uint8]
}

func NewRestInfo() *RestInfo {
	r := &RestInfo{}
	l := restInfoSchema.Begin(&r.Record)
	g := l.Group()
	r.Threshold = updatefield.NewScalar[uint32](l.Field(g))
	r.StateID = updatefield.NewScalar[uint8](l.Field(g))
	l.End()
	return r
}

func (r *RestInfo) WriteCreate(w *bitpack.Writer) {
	w.WriteUint32(r.Threshold.Get())
	w.WriteUint8(r.StateID.Get())
}

func (r *RestInfo) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(restInfoSchema, r.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	if r.Threshold.Changed(m) {
		w.WriteUint32(r.Threshold.Get())
	}
	if r.StateID.Changed(m) {
		w.WriteUint8(r.StateID.Get())
	}
}

// PVPInfo is the rating state of one PvP bracket.
type PVPInfo struct {
	updatefield.Record
	Bracket                *updatefield.Scalar[int8]
	PvpRatingID            *updatefield.Scalar[int32]
	WeeklyPlayed           *updatefield.Scalar[uint32]
	WeeklyWon              *updatefield.Scalar[uint32]
	SeasonPlayed           *updatefield.Scalar[uint32]
	SeasonWon              *updatefield.Scalar[uint32]
	Rating                 *updatefield.Scalar[uint32]
	WeeklyBestRating       *updatefield.Scalar[uint32]
	SeasonBestRating       *updatefield.Scalar[uint32]
	PvpTierID              *updatefield.Scalar[uint32]
	WeeklyBestWinPvpTierID *updatefield.Scalar[uint32]
	Disqualified           *updatefield.Scalar[bool]
}

func NewPVPInfo() *PVPInfo {
	p := &PVPInfo{}
	l := pvpInfoSchema.Begin(&p.Record)
	g := l.Group()
	p.Bracket = updatefield.NewScalar[int8](l.Field(g))
	p.PvpRatingID = updatefield.NewScalar[int32](l.Field(g))
	p.WeeklyPlayed = updatefield.NewScalar[uint32](l.Field(g))
	p.WeeklyWon = updatefield.NewScalar[uint32](l.Field(g))
	p.SeasonPlayed = updatefield.NewScalar[uint32](l.Field(g))
	p.SeasonWon = updatefield.NewScalar[uint32](l.Field(g))
	p.Rating = updatefield.NewScalar[uint32](l.Field(g))
	p.WeeklyBestRating = updatefield.NewScalar[uint32](l.Field(g))
	p.SeasonBestRating = updatefield.NewScalar[uint32](l.Field(g))
	p.PvpTierID = updatefield.NewScalar[uint32](l.Field(g))
	p.WeeklyBestWinPvpTierID = updatefield.NewScalar[uint32](l.Field(g))
	p.Disqualified = updatefield.NewScalar[bool](l.Field(g))
	l.End()
	return p
}

func (p *PVPInfo) counters() []*updatefield.Scalar[uint32] {
	return []*updatefield.Scalar[uint32]{
		p.WeeklyPlayed, p.WeeklyWon, p.SeasonPlayed, p.SeasonWon, p.Rating,
		p.WeeklyBestRating, p.SeasonBestRating, p.PvpTierID, p.WeeklyBestWinPvpTierID,
	}
}

func (p *PVPInfo) WriteCreate(w *bitpack.Writer) {
	w.WriteInt8(p.Bracket.Get())
	w.WriteInt32(p.PvpRatingID.Get())
	writeEach(nil, w.WriteUint32, p.counters()...)
	w.WriteBit(p.Disqualified.Get())
	w.FlushBits()
}

func (p *PVPInfo) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(pvpInfoSchema, p.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	if p.Disqualified.Changed(m) {
		w.WriteBit(p.Disqualified.Get())
	}
	w.FlushBits()
	if p.Bracket.Changed(m) {
		w.WriteInt8(p.Bracket.Get())
	}
	if p.PvpRatingID.Changed(m) {
		w.WriteInt32(p.PvpRatingID.Get())
	}
	writeChanged(m, w.WriteUint32, p.counters()...)
}

// CharacterRestriction is an account or character level restriction.
type CharacterRestriction struct {
	Field0 int32
	Field4 int32
	Field8 uint32
	Type   uint32
}

func (c CharacterRestriction) write(w *bitpack.Writer) {
	w.WriteInt32(c.Field0)
	w.WriteInt32(c.Field4)
	w.WriteUint32(c.Field8)
	w.WriteBits(c.Type, restrictionBits)
	w.FlushBits()
}

type SpellPctModByLabel struct {
	ModIndex      int32
	ModifierValue float32
	LabelID       int32
}

func (s SpellPctModByLabel) write(w *bitpack.Writer) {
	w.WriteInt32(s.ModIndex)
	w.WriteFloat32(s.ModifierValue)
	w.WriteInt32(s.LabelID)
}

type SpellFlatModByLabel struct {
	ModIndex      int32
	ModifierValue int32
	LabelID       int32
}

func (s SpellFlatModByLabel) write(w *bitpack.Writer) {
	w.WriteInt32(s.ModIndex)
	w.WriteInt32(s.ModifierValue)
	w.WriteInt32(s.LabelID)
}

// Research is an archaeology project in progress.
type Research struct {
	ResearchProjectID int16
}

func (r Research) write(w *bitpack.Writer) { w.WriteInt16(r.ResearchProjectID) }

// TraitEntry is one node rank chosen in a talent loadout.
type TraitEntry struct {
	TraitNodeID      int32
	TraitNodeEntryID int32
	Rank             int32
	GrantedRanks     int32
}

func (e TraitEntry) write(w *bitpack.Writer) {
	w.WriteInt32(e.TraitNodeID)
	w.WriteInt32(e.TraitNodeEntryID)
	w.WriteInt32(e.Rank)
	w.WriteInt32(e.GrantedRanks)
}

// TraitConfig is a saved talent loadout.
type TraitConfig struct {
	updatefield.Record
	Entries             *updatefield.DynamicList[TraitEntry]
	ID                  *updatefield.Scalar[int32]
	Name                *updatefield.Scalar[string]
	Type                *updatefield.Scalar[int32]
	SkillLineID         *updatefield.Scalar[uint32]
	ChrSpecializationID *updatefield.Scalar[int32]
	CombatConfigFlags   *updatefield.Scalar[int32]
	LocalIdentifier     *updatefield.Scalar[int32]
	TraitSystemID       *updatefield.Scalar[int32]
}

func NewTraitConfig() *TraitConfig {
	c := &TraitConfig{}
	l := traitConfigSchema.Begin(&c.Record)
	g := l.Group()
	c.Entries = updatefield.NewDynamicList[TraitEntry](l.Field(g))
	c.ID = updatefield.NewScalar[int32](l.Field(g))
	c.Name = updatefield.NewScalar[string](l.Field(g))
	c.Type = updatefield.NewScalar[int32](l.Field(g))
	c.SkillLineID = updatefield.NewScalar[uint32](l.Field(g))
	c.ChrSpecializationID = updatefield.NewScalar[int32](l.Field(g))
	c.CombatConfigFlags = updatefield.NewScalar[int32](l.Field(g))
	c.LocalIdentifier = updatefield.NewScalar[int32](l.Field(g))
	c.TraitSystemID = updatefield.NewScalar[int32](l.Field(g))
	l.End()
	return c
}

func (c *TraitConfig) ints() []*updatefield.Scalar[int32] {
	return []*updatefield.Scalar[int32]{c.ID, c.Type, c.ChrSpecializationID, c.CombatConfigFlags, c.LocalIdentifier, c.TraitSystemID}
}

func (c *TraitConfig) WriteCreate(w *bitpack.Writer) {
	writeEach(nil, w.WriteInt32, c.ints()...)
	w.WriteUint32(c.SkillLineID.Get())
	updatefield.WriteListCreate(w, c.Entries, listLengthBits, nil, func(e TraitEntry) { e.write(w) })
	w.WriteString(c.Name.Get(), traitNameBits)
}

func (c *TraitConfig) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(traitConfigSchema, c.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	if c.Entries.Changed(m) {
		updatefield.WriteListUpdate(w, c.Entries, listLengthBits, forceFull, func(e TraitEntry, _ bool) { e.write(w) })
	}
	writeChanged(m, w.WriteInt32, c.ints()...)
	if c.SkillLineID.Changed(m) {
		w.WriteUint32(c.SkillLineID.Get())
	}
	if c.Name.Changed(m) {
		w.WriteString(c.Name.Get(), traitNameBits)
	}
}

type BankTabSettings struct {
	updatefield.Record
	Name         *updatefield.Scalar[string]
	Icon         *updatefield.Scalar[string]
	Description  *updatefield.Scalar[string]
	DepositFlags *updatefield.Scalar[int32]
}

func NewBankTabSettings() *BankTabSettings {
	b := &BankTabSettings{}
	l := bankTabSettingsSchema.Begin(&b.Record)
	g := l.Group()
	b.Name = updatefield.NewScalar[string](l.Field(g))
	b.Icon = updatefield.NewScalar[string](l.Field(g))
	b.Description = updatefield.NewScalar[string](l.Field(g))
	b.DepositFlags = updatefield.NewScalar[int32](l.Field(g))
	l.End()
	return b
}

func (b *BankTabSettings) WriteCreate(w *bitpack.Writer) {
	w.WriteString(b.Name.Get(), bankNameBits)
	w.WriteString(b.Icon.Get(), bankIconBits)
	w.WriteString(b.Description.Get(), bankDescBits)
	w.WriteInt32(b.DepositFlags.Get())
}

func (b *BankTabSettings) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(bankTabSettingsSchema, b.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	if b.Name.Changed(m) {
		w.WriteString(b.Name.Get(), bankNameBits)
	}
	if b.Icon.Changed(m) {
		w.WriteString(b.Icon.Get(), bankIconBits)
	}
	if b.Description.Changed(m) {
		w.WriteString(b.Description.Get(), bankDescBits)
	}
	if b.DepositFlags.Changed(m) {
		w.WriteInt32(b.DepositFlags.Get())
	}
}

// PlayerDataElementType selects the value carried by a PlayerDataElement.
type PlayerDataElementType uint32

const (
	PlayerDataInt64 PlayerDataElementType = iota
	PlayerDataFloat
)

// PlayerDataElement is a typed per-character storage slot.
type PlayerDataElement struct {
	Type       PlayerDataElementType
	FloatValue float32
	Int64Value int64
}

func (e PlayerDataElement) write(w *bitpack.Writer) {
	w.WriteUint32(uint32(e.Type))
	if e.Type == PlayerDataFloat {
		w.WriteFloat32(e.FloatValue)
		return
	}
	w.WriteInt64(e.Int64Value)
}

// ActivePlayerData is the private state of a player, only ever sent to
// the player itself.
type ActivePlayerData struct {
	updatefield.Record

	KnownTitles                 *updatefield.DynamicList[uint64]
	ResearchSites               *updatefield.DynamicList[uint16]
	ResearchSiteProgress        *updatefield.DynamicList[uint32]
	Research                    *updatefield.DynamicList[Research]
	DailyQuestsCompleted        *updatefield.DynamicList[int32]
	AvailableQuestLineXQuestIDs *updatefield.DynamicList[int32]
	Heirlooms                   *updatefield.DynamicList[int32]
	HeirloomFlags               *updatefield.DynamicList[uint32]
	Toys                        *updatefield.DynamicList[int32]
	Transmog                    *updatefield.DynamicList[uint32]
	ConditionalTransmog         *updatefield.DynamicList[int32]
	CharacterRestrictions       *updatefield.DynamicList[CharacterRestriction]
	SpellPctModByLabel          *updatefield.DynamicList[SpellPctModByLabel]
	SpellFlatModByLabel         *updatefield.DynamicList[SpellFlatModByLabel]
	PvpInfo                     *updatefield.DynamicList[*PVPInfo]
	TraitConfigs                *updatefield.DynamicList[*TraitConfig]
	BankTabSettings             *updatefield.DynamicList[*BankTabSettings]
	CharacterDataElements       *updatefield.DynamicList[PlayerDataElement]

	FarsightObject                *updatefield.Scalar[bitpack.ObjectGUID]
	SummonedBattlePetGUID         *updatefield.Scalar[bitpack.ObjectGUID]
	Coinage                       *updatefield.Scalar[uint64]
	XP                            *updatefield.Scalar[int32]
	NextLevelXP                   *updatefield.Scalar[int32]
	TrialXP                       *updatefield.Scalar[int32]
	Skill                         *updatefield.Scalar[*SkillInfo]
	CharacterPoints               *updatefield.Scalar[int32]
	MaxTalentTiers                *updatefield.Scalar[int32]
	TrackCreatureMask             *updatefield.Scalar[uint32]
	MainhandExpertise             *updatefield.Scalar[float32]
	OffhandExpertise              *updatefield.Scalar[float32]
	RangedExpertise               *updatefield.Scalar[float32]
	CombatRatingExpertise         *updatefield.Scalar[float32]
	BlockPercentage               *updatefield.Scalar[float32]
	DodgePercentage               *updatefield.Scalar[float32]
	ParryPercentage               *updatefield.Scalar[float32]
	CritPercentage                *updatefield.Scalar[float32]
	RangedCritPercentage          *updatefield.Scalar[float32]
	ShieldBlock                   *updatefield.Scalar[int32]
	Mastery                       *updatefield.Scalar[float32]
	Speed                         *updatefield.Scalar[float32]
	Lifesteal                     *updatefield.Scalar[float32]
	Avoidance                     *updatefield.Scalar[float32]
	Sturdiness                    *updatefield.Scalar[float32]
	Versatility                   *updatefield.Scalar[int32]
	VersatilityBonus              *updatefield.Scalar[float32]
	PvpPowerDamage                *updatefield.Scalar[float32]
	PvpPowerHealing               *updatefield.Scalar[float32]
	ModHealingDonePct             *updatefield.Scalar[float32]
	ModHealingPercent             *updatefield.Scalar[float32]
	ModSpellPowerPercent          *updatefield.Scalar[float32]
	ModResiliencePercent          *updatefield.Scalar[float32]
	OverrideSpellPowerByAPPercent *updatefield.Scalar[float32]
	OverrideAPBySpellPowerPercent *updatefield.Scalar[float32]
	ModTargetResistance           *updatefield.Scalar[int32]
	ModTargetPhysicalResistance   *updatefield.Scalar[int32]
	LocalFlags                    *updatefield.Scalar[uint32]
	GrantableLevels               *updatefield.Scalar[uint8]
	MultiActionBars               *updatefield.Scalar[uint8]
	LifetimeMaxRank               *updatefield.Scalar[uint8]
	NumRespecs                    *updatefield.Scalar[uint8]
	AmmoID                        *updatefield.Scalar[uint32]
	PvpMedals                     *updatefield.Scalar[uint32]
	TodayHonorableKills           *updatefield.Scalar[uint16]
	YesterdayHonorableKills       *updatefield.Scalar[uint16]
	LifetimeHonorableKills        *updatefield.Scalar[uint32]
	WatchedFactionIndex           *updatefield.Scalar[int32]
	MaxLevel                      *updatefield.Scalar[int32]
	ScalingPlayerLevelDelta       *updatefield.Scalar[int32]
	MaxCreatureScalingLevel       *updatefield.Scalar[int32]
	PetSpellPower                 *updatefield.Scalar[int32]
	UiHitModifier                 *updatefield.Scalar[float32]
	UiSpellHitModifier            *updatefield.Scalar[float32]
	HomeRealmTimeOffset           *updatefield.Scalar[int32]
	ModPetHaste                   *updatefield.Scalar[float32]
	LocalRegenFlags               *updatefield.Scalar[uint8]
	AuraVision                    *updatefield.Scalar[uint8]
	NumBackpackSlots              *updatefield.Scalar[uint8]
	OverrideSpellsID              *updatefield.Scalar[int32]
	LootSpecID                    *updatefield.Scalar[uint16]
	OverrideZonePVPType           *updatefield.Scalar[uint32]
	Honor                         *updatefield.Scalar[int32]
	HonorNextLevel                *updatefield.Scalar[int32]
	PerksProgramCurrency          *updatefield.Scalar[int32]
	NumBankSlots                  *updatefield.Scalar[uint8]
	UiChromieTimeExpansionID      *updatefield.Scalar[int32]
	TransportServerTime           *updatefield.Scalar[int32]
	ActiveCombatTraitConfigID     *updatefield.Scalar[uint32]

	InvSlots                  *updatefield.FixedArray[bitpack.ObjectGUID]
	ExploredZones             *updatefield.FixedArray[uint64]
	RestInfo                  *updatefield.FixedArray[*RestInfo]
	ModDamageDonePos          *updatefield.FixedArray[int32]
	ModDamageDoneNeg          *updatefield.FixedArray[int32]
	ModDamageDonePercent      *updatefield.FixedArray[float32]
	WeaponDmgMultipliers      *updatefield.FixedArray[float32]
	WeaponAtkSpeedMultipliers *updatefield.FixedArray[float32]
	BuybackPrice              *updatefield.FixedArray[uint32]
	BuybackTimestamp          *updatefield.FixedArray[int64]
	CombatRatings             *updatefield.FixedArray[int32]
	NoReagentCostMask         *updatefield.FixedArray[uint32]
	ProfessionSkillLine       *updatefield.FixedArray[int32]
	BagSlotFlags              *updatefield.FixedArray[uint32]
	BankBagSlotFlags          *updatefield.FixedArray[uint32]
	QuestCompleted            *updatefield.FixedArray[uint64]
}

func NewActivePlayerData() *ActivePlayerData {
	const o = updatefield.VisibleOwner
	d := &ActivePlayerData{}
	l := activePlayerDataSchema.Begin(&d.Record)
	g := l.Group()
	d.KnownTitles = updatefield.NewDynamicList[uint64](l.FieldFor(g, o))
	d.ResearchSites = updatefield.NewDynamicList[uint16](l.FieldFor(g, o))
	d.ResearchSiteProgress = updatefield.NewDynamicList[uint32](l.FieldFor(g, o))
	d.Research = updatefield.NewDynamicList[Research](l.FieldFor(g, o))
	d.DailyQuestsCompleted = updatefield.NewDynamicList[int32](l.FieldFor(g, o))
	d.AvailableQuestLineXQuestIDs = updatefield.NewDynamicList[int32](l.FieldFor(g, o))
	d.Heirlooms = updatefield.NewDynamicList[int32](l.FieldFor(g, o))
	d.HeirloomFlags = updatefield.NewDynamicList[uint32](l.FieldFor(g, o))
	d.Toys = updatefield.NewDynamicList[int32](l.FieldFor(g, o))
	d.Transmog = updatefield.NewDynamicList[uint32](l.FieldFor(g, o))
	d.ConditionalTransmog = updatefield.NewDynamicList[int32](l.FieldFor(g, o))
	d.CharacterRestrictions = updatefield.NewDynamicList[CharacterRestriction](l.FieldFor(g, o))
	d.SpellPctModByLabel = updatefield.NewDynamicList[SpellPctModByLabel](l.FieldFor(g, o))
	d.SpellFlatModByLabel = updatefield.NewDynamicList[SpellFlatModByLabel](l.FieldFor(g, o))
	d.PvpInfo = updatefield.NewDynamicListOf(l.FieldFor(g, o), NewPVPInfo)
	d.TraitConfigs = updatefield.NewDynamicListOf(l.FieldFor(g, o), NewTraitConfig)
	d.BankTabSettings = updatefield.NewDynamicListOf(l.FieldFor(g, o), NewBankTabSettings)
	d.CharacterDataElements = updatefield.NewDynamicList[PlayerDataElement](l.FieldFor(g, o))

	guid := func() *updatefield.Scalar[bitpack.ObjectGUID] { return updatefield.NewScalar[bitpack.ObjectGUID](l.FieldFor(g, o)) }
	i32 := func() *updatefield.Scalar[int32] { return updatefield.NewScalar[int32](l.FieldFor(g, o)) }
	u32 := func() *updatefield.Scalar[uint32] { return updatefield.NewScalar[uint32](l.FieldFor(g, o)) }
	u16 := func() *updatefield.Scalar[uint16] { return updatefield.NewScalar[uint16](l.FieldFor(g, o)) }
	u8 := func() *updatefield.Scalar[uint8] { return updatefield.NewScalar[uint8](l.FieldFor(g, o)) }
	f32 := func() *updatefield.Scalar[float32] { return updatefield.NewScalar[float32](l.FieldFor(g, o)) }

	d.FarsightObject = guid()
	d.SummonedBattlePetGUID = guid()
	d.Coinage = updatefield.NewScalar[uint64](l.FieldFor(g, o))
	d.XP = i32()
	d.NextLevelXP = i32()
	d.TrialXP = i32()
	d.Skill = updatefield.NewScalarOf(l.FieldFor(g, o), NewSkillInfo())
	d.CharacterPoints = i32()
	d.MaxTalentTiers = i32()
	d.TrackCreatureMask = u32()
	d.MainhandExpertise = f32()
	d.OffhandExpertise = f32()
	d.RangedExpertise = f32()
	d.CombatRatingExpertise = f32()
	d.BlockPercentage = f32()
	d.DodgePercentage = f32()
	d.ParryPercentage = f32()
	d.CritPercentage = f32()
	d.RangedCritPercentage = f32()
	d.ShieldBlock = i32()
	d.Mastery = f32()
	d.Speed = f32()
	d.Lifesteal = f32()
	d.Avoidance = f32()
	d.Sturdiness = f32()
	d.Versatility = i32()
	d.VersatilityBonus = f32()
	d.PvpPowerDamage = f32()
	d.PvpPowerHealing = f32()
	d.ModHealingDonePct = f32()
	d.ModHealingPercent = f32()
	d.ModSpellPowerPercent = f32()
	d.ModResiliencePercent = f32()
	d.OverrideSpellPowerByAPPercent = f32()
	d.OverrideAPBySpellPowerPercent = f32()
	d.ModTargetResistance = i32()
	d.ModTargetPhysicalResistance = i32()
	d.LocalFlags = u32()
	d.GrantableLevels = u8()
	d.MultiActionBars = u8()
	d.LifetimeMaxRank = u8()
	d.NumRespecs = u8()
	d.AmmoID = u32()
	d.PvpMedals = u32()
	d.TodayHonorableKills = u16()
	d.YesterdayHonorableKills = u16()
	d.LifetimeHonorableKills = u32()
	d.WatchedFactionIndex = i32()
	d.MaxLevel = i32()
	d.ScalingPlayerLevelDelta = i32()
	d.MaxCreatureScalingLevel = i32()
	d.PetSpellPower = i32()
	d.UiHitModifier = f32()
	d.UiSpellHitModifier = f32()
	d.HomeRealmTimeOffset = i32()
	d.ModPetHaste = f32()
	d.LocalRegenFlags = u8()
	d.AuraVision = u8()
	d.NumBackpackSlots = u8()
	d.OverrideSpellsID = i32()
	d.LootSpecID = u16()
	d.OverrideZonePVPType = u32()
	d.Honor = i32()
	d.HonorNextLevel = i32()
	d.PerksProgramCurrency = i32()
	d.NumBankSlots = u8()
	d.UiChromieTimeExpansionID = i32()
	d.TransportServerTime = i32()
	d.ActiveCombatTraitConfigID = u32()

	d.InvSlots = updatefield.NewFixedArray[bitpack.ObjectGUID](l.ArrayFor(-1, invSlots, o))
	d.ExploredZones = updatefield.NewFixedArray[uint64](l.ArrayFor(-1, exploredZoneWords, o))
	d.RestInfo = updatefield.NewFixedArrayOf(l.ArrayFor(-1, restTypes, o), func(int) *RestInfo { return NewRestInfo() })
	d.ModDamageDonePos = updatefield.NewFixedArray[int32](l.ArrayFor(-1, spellSchools, o))
	d.ModDamageDoneNeg = updatefield.NewFixedArray[int32](l.ArrayFor(-1, spellSchools, o))
	d.ModDamageDonePercent = updatefield.NewFixedArray[float32](l.ArrayFor(-1, spellSchools, o))
	d.WeaponDmgMultipliers = updatefield.NewFixedArray[float32](l.ArrayFor(-1, weaponSlots, o))
	d.WeaponAtkSpeedMultipliers = updatefield.NewFixedArray[float32](l.ArrayFor(-1, weaponSlots, o))
	d.BuybackPrice = updatefield.NewFixedArray[uint32](l.ArrayFor(-1, buybackSlots, o))
	d.BuybackTimestamp = updatefield.NewFixedArray[int64](l.ArrayFor(-1, buybackSlots, o))
	d.CombatRatings = updatefield.NewFixedArray[int32](l.ArrayFor(-1, combatRatings, o))
	d.NoReagentCostMask = updatefield.NewFixedArray[uint32](l.ArrayFor(-1, reagentMaskWords, o))
	d.ProfessionSkillLine = updatefield.NewFixedArray[int32](l.ArrayFor(-1, professionSlots, o))
	d.BagSlotFlags = updatefield.NewFixedArray[uint32](l.ArrayFor(-1, bagSlots, o))
	d.BankBagSlotFlags = updatefield.NewFixedArray[uint32](l.ArrayFor(-1, bankBagSlots, o))
	d.QuestCompleted = updatefield.NewFixedArray[uint64](l.ArrayFor(-1, questCompletedBits, o))
	l.End()

	for i := 0; i < spellSchools; i++ {
		d.ModDamageDonePercent.Set(i, 1)
	}
	for i := 0; i < weaponSlots; i++ {
		d.WeaponDmgMultipliers.Set(i, 1)
		d.WeaponAtkSpeedMultipliers.Set(i, 1)
	}
	d.ClearChanges()
	return d
}

func (d *ActivePlayerData) i32s() []*updatefield.Scalar[int32] {
	return []*updatefield.Scalar[int32]{
		d.XP, d.NextLevelXP, d.TrialXP, d.CharacterPoints, d.MaxTalentTiers, d.ShieldBlock,
		d.Versatility, d.ModTargetResistance, d.ModTargetPhysicalResistance, d.WatchedFactionIndex,
		d.MaxLevel, d.ScalingPlayerLevelDelta, d.MaxCreatureScalingLevel, d.PetSpellPower,
		d.HomeRealmTimeOffset, d.OverrideSpellsID, d.Honor, d.HonorNextLevel, d.PerksProgramCurrency,
		d.UiChromieTimeExpansionID, d.TransportServerTime,
	}
}

func (d *ActivePlayerData) u32s() []*updatefield.Scalar[uint32] {
	return []*updatefield.Scalar[uint32]{
		d.TrackCreatureMask, d.LocalFlags, d.AmmoID, d.PvpMedals, d.LifetimeHonorableKills,
		d.OverrideZonePVPType, d.ActiveCombatTraitConfigID,
	}
}

func (d *ActivePlayerData) f32s() []*updatefield.Scalar[float32] {
	return []*updatefield.Scalar[float32]{
		d.MainhandExpertise, d.OffhandExpertise, d.RangedExpertise, d.CombatRatingExpertise,
		d.BlockPercentage, d.DodgePercentage, d.ParryPercentage, d.CritPercentage, d.RangedCritPercentage,
		d.Mastery, d.Speed, d.Lifesteal, d.Avoidance, d.Sturdiness, d.VersatilityBonus,
		d.PvpPowerDamage, d.PvpPowerHealing, d.ModHealingDonePct, d.ModHealingPercent,
		d.ModSpellPowerPercent, d.ModResiliencePercent, d.OverrideSpellPowerByAPPercent,
		d.OverrideAPBySpellPowerPercent, d.UiHitModifier, d.UiSpellHitModifier, d.ModPetHaste,
	}
}

func (d *ActivePlayerData) u8s() []*updatefield.Scalar[uint8] {
	return []*updatefield.Scalar[uint8]{
		d.GrantableLevels, d.MultiActionBars, d.LifetimeMaxRank, d.NumRespecs,
		d.LocalRegenFlags, d.AuraVision, d.NumBackpackSlots, d.NumBankSlots,
	}
}

func (d *ActivePlayerData) u16s() []*updatefield.Scalar[uint16] {
	return []*updatefield.Scalar[uint16]{d.TodayHonorableKills, d.YesterdayHonorableKills, d.LootSpecID}
}

var blankSkillInfo = NewSkillInfo()

// WriteCreate writes the snapshot. Every field is owner-only, so any other
// viewer receives an all-zero record.
func (d *ActivePlayerData) WriteCreate(w *bitpack.Writer, allowed *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	d.InvSlots.Each(allowed, func(_ int, g bitpack.ObjectGUID) { w.WritePackedGUID(g) })
	writeEach(allowed, w.WritePackedGUID, d.FarsightObject, d.SummonedBattlePetGUID)
	updatefield.WriteListCreate(w, d.KnownTitles, listLengthBits, allowed, w.WriteUint64)
	w.WriteUint64(d.Coinage.ValueFor(allowed))
	writeEach(allowed, w.WriteInt32, d.i32s()...)
	writeEach(allowed, w.WriteUint32, d.u32s()...)
	writeEach(allowed, w.WriteFloat32, d.f32s()...)
	writeEach(allowed, w.WriteUint8, d.u8s()...)
	writeEach(allowed, w.WriteUint16, d.u16s()...)
	skill := d.Skill.Get()
	if !updatefield.Permits(allowed, d.Skill.Bit()) {
		skill = blankSkillInfo
	}
	skill.WriteCreate(w)
	d.ExploredZones.Each(allowed, func(_ int, v uint64) { w.WriteUint64(v) })
	restVisible := updatefield.Permits(allowed, d.RestInfo.ParentBit())
	d.RestInfo.Each(allowed, func(_ int, r *RestInfo) {
		if restVisible {
			r.WriteCreate(w)
		} else {
			w.WriteUint32(0)
			w.WriteUint8(0)
		}
	})
	d.ModDamageDonePos.Each(allowed, func(_ int, v int32) { w.WriteInt32(v) })
	d.ModDamageDoneNeg.Each(allowed, func(_ int, v int32) { w.WriteInt32(v) })
	d.ModDamageDonePercent.Each(allowed, func(_ int, v float32) { w.WriteFloat32(v) })
	d.WeaponDmgMultipliers.Each(allowed, func(_ int, v float32) { w.WriteFloat32(v) })
	d.WeaponAtkSpeedMultipliers.Each(allowed, func(_ int, v float32) { w.WriteFloat32(v) })
	d.BuybackPrice.Each(allowed, func(_ int, v uint32) { w.WriteUint32(v) })
	d.BuybackTimestamp.Each(allowed, func(_ int, v int64) { w.WriteInt64(v) })
	d.CombatRatings.Each(allowed, func(_ int, v int32) { w.WriteInt32(v) })
	d.NoReagentCostMask.Each(allowed, func(_ int, v uint32) { w.WriteUint32(v) })
	d.ProfessionSkillLine.Each(allowed, func(_ int, v int32) { w.WriteInt32(v) })
	d.BagSlotFlags.Each(allowed, func(_ int, v uint32) { w.WriteUint32(v) })
	d.BankBagSlotFlags.Each(allowed, func(_ int, v uint32) { w.WriteUint32(v) })
	d.QuestCompleted.Each(allowed, func(_ int, v uint64) { w.WriteUint64(v) })
	updatefield.WriteListCreate(w, d.ResearchSites, listLengthBits, allowed, w.WriteUint16)
	updatefield.WriteListCreate(w, d.ResearchSiteProgress, listLengthBits, allowed, w.WriteUint32)
	updatefield.WriteListCreate(w, d.Research, listLengthBits, allowed, func(r Research) { r.write(w) })
	updatefield.WriteListCreate(w, d.DailyQuestsCompleted, listLengthBits, allowed, w.WriteInt32)
	updatefield.WriteListCreate(w, d.AvailableQuestLineXQuestIDs, listLengthBits, allowed, w.WriteInt32)
	updatefield.WriteListCreate(w, d.Heirlooms, listLengthBits, allowed, w.WriteInt32)
	updatefield.WriteListCreate(w, d.HeirloomFlags, listLengthBits, allowed, w.WriteUint32)
	updatefield.WriteListCreate(w, d.Toys, listLengthBits, allowed, w.WriteInt32)
	updatefield.WriteListCreate(w, d.Transmog, listLengthBits, allowed, w.WriteUint32)
	updatefield.WriteListCreate(w, d.ConditionalTransmog, listLengthBits, allowed, w.WriteInt32)
	updatefield.WriteListCreate(w, d.CharacterRestrictions, listLengthBits, allowed, func(c CharacterRestriction) { c.write(w) })
	updatefield.WriteListCreate(w, d.SpellPctModByLabel, listLengthBits, allowed, func(s SpellPctModByLabel) { s.write(w) })
	updatefield.WriteListCreate(w, d.SpellFlatModByLabel, listLengthBits, allowed, func(s SpellFlatModByLabel) { s.write(w) })
	updatefield.WriteListCreate(w, d.PvpInfo, listLengthBits, allowed, func(p *PVPInfo) { p.WriteCreate(w) })
	updatefield.WriteListCreate(w, d.TraitConfigs, listLengthBits, allowed, func(c *TraitConfig) { c.WriteCreate(w) })
	updatefield.WriteListCreate(w, d.BankTabSettings, listLengthBits, allowed, func(b *BankTabSettings) { b.WriteCreate(w) })
	updatefield.WriteListCreate(w, d.CharacterDataElements, listLengthBits, allowed, func(e PlayerDataElement) { e.write(w) })
}

func (d *ActivePlayerData) WriteUpdate(w *bitpack.Writer, m *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	updatefield.WriteMask(w, m)
	writeList(w, m, d.KnownTitles, w.WriteUint64)
	writeList(w, m, d.ResearchSites, w.WriteUint16)
	writeList(w, m, d.ResearchSiteProgress, w.WriteUint32)
	writeList(w, m, d.Research, func(r Research) { r.write(w) })
	writeList(w, m, d.DailyQuestsCompleted, w.WriteInt32)
	writeList(w, m, d.AvailableQuestLineXQuestIDs, w.WriteInt32)
	writeList(w, m, d.Heirlooms, w.WriteInt32)
	writeList(w, m, d.HeirloomFlags, w.WriteUint32)
	writeList(w, m, d.Toys, w.WriteInt32)
	writeList(w, m, d.Transmog, w.WriteUint32)
	writeList(w, m, d.ConditionalTransmog, w.WriteInt32)
	writeList(w, m, d.CharacterRestrictions, func(c CharacterRestriction) { c.write(w) })
	writeList(w, m, d.SpellPctModByLabel, func(s SpellPctModByLabel) { s.write(w) })
	writeList(w, m, d.SpellFlatModByLabel, func(s SpellFlatModByLabel) { s.write(w) })
	if d.PvpInfo.Changed(m) {
		updatefield.WriteListUpdate(w, d.PvpInfo, listLengthBits, false, func(p *PVPInfo, forced bool) { p.WriteUpdate(w, forced) })
	}
	if d.TraitConfigs.Changed(m) {
		updatefield.WriteListUpdate(w, d.TraitConfigs, listLengthBits, false, func(c *TraitConfig, forced bool) { c.WriteUpdate(w, forced) })
	}
	if d.BankTabSettings.Changed(m) {
		updatefield.WriteListUpdate(w, d.BankTabSettings, listLengthBits, false, func(b *BankTabSettings, forced bool) { b.WriteUpdate(w, forced) })
	}
	writeList(w, m, d.CharacterDataElements, func(e PlayerDataElement) { e.write(w) })
	writeChanged(m, w.WritePackedGUID, d.FarsightObject, d.SummonedBattlePetGUID)
	writeChanged(m, w.WriteUint64, d.Coinage)
	writeChanged(m, w.WriteInt32, d.i32s()...)
	writeChanged(m, w.WriteUint32, d.u32s()...)
	writeChanged(m, w.WriteFloat32, d.f32s()...)
	writeChanged(m, w.WriteUint8, d.u8s()...)
	writeChanged(m, w.WriteUint16, d.u16s()...)
	if d.Skill.Changed(m) {
		d.Skill.Get().WriteUpdate(w, false)
	}
	d.InvSlots.EachChanged(m, func(_ int, g bitpack.ObjectGUID) { w.WritePackedGUID(g) })
	d.ExploredZones.EachChanged(m, func(_ int, v uint64) { w.WriteUint64(v) })
	d.RestInfo.EachChanged(m, func(_ int, r *RestInfo) { r.WriteUpdate(w, false) })
	d.ModDamageDonePos.EachChanged(m, func(_ int, v int32) { w.WriteInt32(v) })
	d.ModDamageDoneNeg.EachChanged(m, func(_ int, v int32) { w.WriteInt32(v) })
	d.ModDamageDonePercent.EachChanged(m, func(_ int, v float32) { w.WriteFloat32(v) })
	d.WeaponDmgMultipliers.EachChanged(m, func(_ int, v float32) { w.WriteFloat32(v) })
	d.WeaponAtkSpeedMultipliers.EachChanged(m, func(_ int, v float32) { w.WriteFloat32(v) })
	d.BuybackPrice.EachChanged(m, func(_ int, v uint32) { w.WriteUint32(v) })
	d.BuybackTimestamp.EachChanged(m, func(_ int, v int64) { w.WriteInt64(v) })
	d.CombatRatings.EachChanged(m, func(_ int, v int32) { w.WriteInt32(v) })
	d.NoReagentCostMask.EachChanged(m, func(_ int, v uint32) { w.WriteUint32(v) })
	d.ProfessionSkillLine.EachChanged(m, func(_ int, v int32) { w.WriteInt32(v) })
	d.BagSlotFlags.EachChanged(m, func(_ int, v uint32) { w.WriteUint32(v) })
	d.BankBagSlotFlags.EachChanged(m, func(_ int, v uint32) { w.WriteUint32(v) })
	d.QuestCompleted.EachChanged(m, func(_ int, v uint64) { w.WriteUint64(v) })
}

// SetQuestCompleted flags quest id in the completed quest bitset.
func (d *ActivePlayerData) SetQuestCompleted(questID int) {
	word, bit := questID/64, uint(questID%64)
	d.QuestCompleted.Set(word, d.QuestCompleted.Get(word)|1<<bit)
}
