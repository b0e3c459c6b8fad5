package fields

import (
	"fieldsync/internal/bitpack"
	"fieldsync/internal/updatefield"
)

var (
	questLogSchema         = updatefield.NewSchema("QuestLog", 29)
	arenaCooldownSchema    = updatefield.NewSchema("ArenaCooldown", 8)
	declinedNamesSchema    = updatefield.NewSchema("DeclinedNames", 6)
	customTabardInfoSchema = updatefield.NewSchema("CustomTabardInfo", 6)
	playerDataSchema       = updatefield.NewSchema("PlayerData", 86)
)

const (
	questObjectives  = 24
	declinedCases    = 5
	questLogSlots    = 25
	visibleItemSlots = 19
	itemLevelKinds   = 6
)

// ChrCustomizationChoice is one character appearance choice.
type ChrCustomizationChoice struct {
	OptionID uint32
	ChoiceID uint32
}

func (c ChrCustomizationChoice) write(w *bitpack.Writer) {
	w.WriteUint32(c.OptionID)
	w.WriteUint32(c.ChoiceID)
}

// QuestLog is one quest log slot.
type QuestLog struct {
	updatefield.Record
	EndTime           *updatefield.Scalar[int64]
	QuestID           *updatefield.Scalar[int32]
	StateFlags        *updatefield.Scalar[uint32]
	ObjectiveProgress *updatefield.FixedArray[uint16]
}

func NewQuestLog() *QuestLog {
	q := &QuestLog{}
	l := questLogSchema.Begin(&q.Record)
	g := l.Group()
	q.EndTime = updatefield.NewScalar[int64](l.Field(g))
	q.QuestID = updatefield.NewScalar[int32](l.Field(g))
	q.StateFlags = updatefield.NewScalar[uint32](l.Field(g))
	q.ObjectiveProgress = updatefield.NewFixedArray[uint16](l.Array(-1, questObjectives))
	l.End()
	return q
}

func (q *QuestLog) WriteCreate(w *bitpack.Writer) {
	w.WriteInt64(q.EndTime.Get())
	w.WriteInt32(q.QuestID.Get())
	w.WriteUint32(q.StateFlags.Get())
	q.ObjectiveProgress.Each(nil, func(_ int, v uint16) { w.WriteUint16(v) })
}

func (q *QuestLog) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(questLogSchema, q.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	if q.EndTime.Changed(m) {
		w.WriteInt64(q.EndTime.Get())
	}
	if q.QuestID.Changed(m) {
		w.WriteInt32(q.QuestID.Get())
	}
	if q.StateFlags.Changed(m) {
		w.WriteUint32(q.StateFlags.Get())
	}
	q.ObjectiveProgress.EachChanged(m, func(_ int, v uint16) { w.WriteUint16(v) })
}

// writeQuestLog writes a changed quest log entry according to the
// configured resend policy.
func writeQuestLog(w *bitpack.Writer, q *QuestLog, full bool) {
	if full {
		q.WriteCreate(w)
		return
	}
	q.WriteUpdate(w, false)
}

type ArenaCooldown struct {
	updatefield.Record
	SpellID        *updatefield.Scalar[int32]
	Charges        *updatefield.Scalar[int32]
	Flags          *updatefield.Scalar[uint32]
	StartTime      *updatefield.Scalar[uint32]
	EndTime        *updatefield.Scalar[uint32]
	NextChargeTime *updatefield.Scalar[uint32]
	MaxCharges     *updatefield.Scalar[uint8]
}

func NewArenaCooldown() *ArenaCooldown {
	c := &ArenaCooldown{}
	l := arenaCooldownSchema.Begin(&c.Record)
	g := l.Group()
	c.SpellID = updatefield.NewScalar[int32](l.Field(g))
	c.Charges = updatefield.NewScalar[int32](l.Field(g))
	c.Flags = updatefield.NewScalar[uint32](l.Field(g))
	c.StartTime = updatefield.NewScalar[uint32](l.Field(g))
	c.EndTime = updatefield.NewScalar[uint32](l.Field(g))
	c.NextChargeTime = updatefield.NewScalar[uint32](l.Field(g))
	c.MaxCharges = updatefield.NewScalar[uint8](l.Field(g))
	l.End()
	return c
}

func (c *ArenaCooldown) WriteCreate(w *bitpack.Writer) {
	w.WriteInt32(c.SpellID.Get())
	w.WriteInt32(c.Charges.Get())
	w.WriteUint32(c.Flags.Get())
	w.WriteUint32(c.StartTime.Get())
	w.WriteUint32(c.EndTime.Get())
	w.WriteUint32(c.NextChargeTime.Get())
	w.WriteUint8(c.MaxCharges.Get())
}

func (c *ArenaCooldown) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(arenaCooldownSchema, c.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	for _, f := range []*updatefield.Scalar[int32]{c.SpellID, c.Charges} {
		if f.Changed(m) {
			w.WriteInt32(f.Get())
		}
	}
	for _, f := range []*updatefield.Scalar[uint32]{c.Flags, c.StartTime, c.EndTime, c.NextChargeTime} {
		if f.Changed(m) {
			w.WriteUint32(f.Get())
		}
	}
	if c.MaxCharges.Changed(m) {
		w.WriteUint8(c.MaxCharges.Get())
	}
}

// CTROptions holds the content tuning options of a player.
type CTROptions struct {
	ConditionMask      int32
	Field4             int32
	ExpansionLevelMask uint32
}

func (o CTROptions) write(w *bitpack.Writer) {
	w.WriteInt32(o.ConditionMask)
	w.WriteInt32(o.Field4)
	w.WriteUint32(o.ExpansionLevelMask)
}

// DeclinedNames holds the grammatical cases of a character name.
type DeclinedNames struct {
	updatefield.Record
	Name *updatefield.FixedArray[string]
}

func NewDeclinedNames() *DeclinedNames {
	n := &DeclinedNames{}
	l := declinedNamesSchema.Begin(&n.Record)
	n.Name = updatefield.NewFixedArray[string](l.Array(-1, declinedCases))
	l.End()
	return n
}

func (n *DeclinedNames) WriteCreate(w *bitpack.Writer) {
	n.Name.Each(nil, func(_ int, s string) { w.WriteString(s, nameLengthBits) })
}

func (n *DeclinedNames) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(declinedNamesSchema, n.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	n.Name.EachChanged(m, func(_ int, s string) { w.WriteString(s, nameLengthBits) })
}

type CustomTabardInfo struct {
	updatefield.Record
	EmblemStyle     *updatefield.Scalar[int32]
	EmblemColor     *updatefield.Scalar[int32]
	BorderStyle     *updatefield.Scalar[int32]
	BorderColor     *updatefield.Scalar[int32]
	BackgroundColor *updatefield.Scalar[int32]
}

func NewCustomTabardInfo() *CustomTabardInfo {
	t := &CustomTabardInfo{}
	l := customTabardInfoSchema.Begin(&t.Record)
	g := l.Group()
	t.EmblemStyle = updatefield.NewScalar[int32](l.Field(g))
	t.EmblemColor = updatefield.NewScalar[int32](l.Field(g))
	t.BorderStyle = updatefield.NewScalar[int32](l.Field(g))
	t.BorderColor = updatefield.NewScalar[int32](l.Field(g))
	t.BackgroundColor = updatefield.NewScalar[int32](l.Field(g))
	l.End()
	for _, f := range t.all() {
		f.Set(-1)
	}
	t.ClearChanges()
	return t
}

func (t *CustomTabardInfo) all() []*updatefield.Scalar[int32] {
	return []*updatefield.Scalar[int32]{t.EmblemStyle, t.EmblemColor, t.BorderStyle, t.BorderColor, t.BackgroundColor}
}

func (t *CustomTabardInfo) WriteCreate(w *bitpack.Writer) {
	for _, f := range t.all() {
		w.WriteInt32(f.Get())
	}
}

func (t *CustomTabardInfo) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(customTabardInfoSchema, t.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	for _, f := range t.all() {
		if f.Changed(m) {
			w.WriteInt32(f.Get())
		}
	}
}

// PlayerData is carried by every player, and seen by everyone who sees
// the player.
type PlayerData struct {
	updatefield.Record

	Customizations         *updatefield.DynamicList[ChrCustomizationChoice]
	QuestSessionQuestLog   *updatefield.DynamicList[*QuestLog]
	ArenaCooldowns         *updatefield.DynamicList[*ArenaCooldown]
	VisualItemReplacements *updatefield.DynamicList[int32]

	DuelArbiter                  *updatefield.Scalar[bitpack.ObjectGUID]
	WowAccount                   *updatefield.Scalar[bitpack.ObjectGUID]
	LootTargetGUID               *updatefield.Scalar[bitpack.ObjectGUID]
	PlayerFlags                  *updatefield.Scalar[uint32]
	PlayerFlagsEx                *updatefield.Scalar[uint32]
	GuildRankID                  *updatefield.Scalar[uint32]
	GuildDeleteDate              *updatefield.Scalar[uint32]
	GuildLevel                   *updatefield.Scalar[int32]
	PartyType                    *updatefield.Scalar[uint8]
	NativeSex                    *updatefield.Scalar[uint8]
	Inebriation                  *updatefield.Scalar[uint8]
	PvpTitle                     *updatefield.Scalar[uint8]
	ArenaFaction                 *updatefield.Scalar[uint8]
	DuelTeam                     *updatefield.Scalar[uint32]
	GuildTimeStamp               *updatefield.Scalar[int32]
	PlayerTitle                  *updatefield.Scalar[int32]
	FakeInebriation              *updatefield.Scalar[int32]
	VirtualPlayerRealm           *updatefield.Scalar[uint32]
	CurrentSpecID                *updatefield.Scalar[uint32]
	TaxiMountAnimKitID           *updatefield.Scalar[int32]
	CurrentBattlePetBreedQuality *updatefield.Scalar[uint8]
	HonorLevel                   *updatefield.Scalar[int32]
	LogoutTime                   *updatefield.Scalar[int64]
	CtrOptions                   *updatefield.Scalar[CTROptions]
	CovenantID                   *updatefield.Scalar[int32]
	SoulbindID                   *updatefield.Scalar[int32]
	DeclinedNames                *updatefield.Optional[*DeclinedNames]
	PersonalTabard               *updatefield.Scalar[*CustomTabardInfo]

	QuestLog     *updatefield.FixedArray[*QuestLog]
	VisibleItems *updatefield.FixedArray[*VisibleItem]
	AvgItemLevel *updatefield.FixedArray[float32]
}

func NewPlayerData() *PlayerData {
	const party = updatefield.VisiblePartyMember
	d := &PlayerData{}
	l := playerDataSchema.Begin(&d.Record)
	g := l.Group()
	d.Customizations = updatefield.NewDynamicList[ChrCustomizationChoice](l.Field(g))
	d.QuestSessionQuestLog = updatefield.NewDynamicListOf(l.FieldFor(g, party), NewQuestLog)
	d.ArenaCooldowns = updatefield.NewDynamicListOf(l.Field(g), NewArenaCooldown)
	d.VisualItemReplacements = updatefield.NewDynamicList[int32](l.Field(g))
	d.DuelArbiter = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.WowAccount = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.LootTargetGUID = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.PlayerFlags = updatefield.NewScalar[uint32](l.Field(g))
	d.PlayerFlagsEx = updatefield.NewScalar[uint32](l.Field(g))
	d.GuildRankID = updatefield.NewScalar[uint32](l.Field(g))
	d.GuildDeleteDate = updatefield.NewScalar[uint32](l.Field(g))
	d.GuildLevel = updatefield.NewScalar[int32](l.Field(g))
	d.PartyType = updatefield.NewScalar[uint8](l.Field(g))
	d.NativeSex = updatefield.NewScalar[uint8](l.Field(g))
	d.Inebriation = updatefield.NewScalar[uint8](l.Field(g))
	d.PvpTitle = updatefield.NewScalar[uint8](l.Field(g))
	d.ArenaFaction = updatefield.NewScalar[uint8](l.Field(g))
	d.DuelTeam = updatefield.NewScalar[uint32](l.Field(g))
	d.GuildTimeStamp = updatefield.NewScalar[int32](l.Field(g))
	d.PlayerTitle = updatefield.NewScalar[int32](l.Field(g))
	d.FakeInebriation = updatefield.NewScalar[int32](l.Field(g))
	d.VirtualPlayerRealm = updatefield.NewScalar[uint32](l.Field(g))
	d.CurrentSpecID = updatefield.NewScalar[uint32](l.Field(g))
	d.TaxiMountAnimKitID = updatefield.NewScalar[int32](l.Field(g))
	d.CurrentBattlePetBreedQuality = updatefield.NewScalar[uint8](l.Field(g))
	d.HonorLevel = updatefield.NewScalar[int32](l.Field(g))
	d.LogoutTime = updatefield.NewScalar[int64](l.Field(g))
	d.CtrOptions = updatefield.NewScalar[CTROptions](l.Field(g))
	d.CovenantID = updatefield.NewScalar[int32](l.Field(g))
	d.SoulbindID = updatefield.NewScalar[int32](l.Field(g))
	d.DeclinedNames = updatefield.NewOptional[*DeclinedNames](l.Field(g))
	d.PersonalTabard = updatefield.NewScalarOf(l.Field(g), NewCustomTabardInfo())
	d.QuestLog = updatefield.NewFixedArrayOf(l.ArrayFor(-1, questLogSlots, party), func(int) *QuestLog { return NewQuestLog() })
	d.VisibleItems = updatefield.NewFixedArrayOf(l.Array(-1, visibleItemSlots), func(int) *VisibleItem { return NewVisibleItem() })
	d.AvgItemLevel = updatefield.NewFixedArray[float32](l.Array(-1, itemLevelKinds))
	l.End()
	return d
}

var blankQuestLog = NewQuestLog()

func (d *PlayerData) WriteCreate(w *bitpack.Writer, allowed *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	w.WritePackedGUID(d.DuelArbiter.ValueFor(allowed))
	w.WritePackedGUID(d.WowAccount.ValueFor(allowed))
	w.WritePackedGUID(d.LootTargetGUID.ValueFor(allowed))
	w.WriteUint32(d.PlayerFlags.ValueFor(allowed))
	w.WriteUint32(d.PlayerFlagsEx.ValueFor(allowed))
	w.WriteUint32(d.GuildRankID.ValueFor(allowed))
	w.WriteUint32(d.GuildDeleteDate.ValueFor(allowed))
	w.WriteInt32(d.GuildLevel.ValueFor(allowed))
	updatefield.WriteListCreate(w, d.Customizations, listLengthBits, allowed, func(c ChrCustomizationChoice) { c.write(w) })
	w.WriteUint8(d.PartyType.ValueFor(allowed))
	w.WriteUint8(d.NativeSex.ValueFor(allowed))
	w.WriteUint8(d.Inebriation.ValueFor(allowed))
	w.WriteUint8(d.PvpTitle.ValueFor(allowed))
	w.WriteUint8(d.ArenaFaction.ValueFor(allowed))
	w.WriteUint32(d.DuelTeam.ValueFor(allowed))
	w.WriteInt32(d.GuildTimeStamp.ValueFor(allowed))
	visible := updatefield.Permits(allowed, d.QuestLog.ParentBit())
	d.QuestLog.Each(allowed, func(_ int, q *QuestLog) {
		if !visible {
			q = blankQuestLog
		}
		q.WriteCreate(w)
	})
	updatefield.WriteListCreate(w, d.QuestSessionQuestLog, listLengthBits, allowed, func(q *QuestLog) { q.WriteCreate(w) })
	d.VisibleItems.Each(allowed, func(_ int, v *VisibleItem) { v.WriteCreate(w) })
	w.WriteInt32(d.PlayerTitle.ValueFor(allowed))
	w.WriteInt32(d.FakeInebriation.ValueFor(allowed))
	w.WriteUint32(d.VirtualPlayerRealm.ValueFor(allowed))
	w.WriteUint32(d.CurrentSpecID.ValueFor(allowed))
	w.WriteInt32(d.TaxiMountAnimKitID.ValueFor(allowed))
	d.AvgItemLevel.Each(allowed, func(_ int, v float32) { w.WriteFloat32(v) })
	w.WriteUint8(d.CurrentBattlePetBreedQuality.ValueFor(allowed))
	w.WriteInt32(d.HonorLevel.ValueFor(allowed))
	w.WriteInt64(d.LogoutTime.ValueFor(allowed))
	updatefield.WriteListCreate(w, d.ArenaCooldowns, listLengthBits, allowed, func(c *ArenaCooldown) { c.WriteCreate(w) })
	d.CtrOptions.ValueFor(allowed).write(w)
	w.WriteInt32(d.CovenantID.ValueFor(allowed))
	w.WriteInt32(d.SoulbindID.ValueFor(allowed))
	updatefield.WriteListCreate(w, d.VisualItemReplacements, listLengthBits, allowed, func(v int32) { w.WriteInt32(v) })
	d.PersonalTabard.Get().WriteCreate(w)
	if w.WriteBit(d.DeclinedNames.VisibleFor(allowed)) {
		d.DeclinedNames.Value().WriteCreate(w)
	}
	w.FlushBits()
}

func (d *PlayerData) WriteUpdate(w *bitpack.Writer, m *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	updatefield.WriteMask(w, m)
	full := ctx.QuestLogPolicy() == updatefield.FullResend
	if d.Customizations.Changed(m) {
		updatefield.WriteListUpdate(w, d.Customizations, listLengthBits, false, func(c ChrCustomizationChoice, _ bool) { c.write(w) })
	}
	if d.QuestSessionQuestLog.Changed(m) {
		w.WriteBit(full)
		w.FlushBits()
		updatefield.WriteListUpdate(w, d.QuestSessionQuestLog, listLengthBits, false, func(q *QuestLog, _ bool) {
			writeQuestLog(w, q, full)
		})
	}
	if d.ArenaCooldowns.Changed(m) {
		updatefield.WriteListUpdate(w, d.ArenaCooldowns, listLengthBits, false, func(c *ArenaCooldown, forced bool) { c.WriteUpdate(w, forced) })
	}
	if d.VisualItemReplacements.Changed(m) {
		updatefield.WriteListUpdate(w, d.VisualItemReplacements, listLengthBits, false, func(v int32, _ bool) { w.WriteInt32(v) })
	}
	for _, f := range []*updatefield.Scalar[bitpack.ObjectGUID]{d.DuelArbiter, d.WowAccount, d.LootTargetGUID} {
		if f.Changed(m) {
			w.WritePackedGUID(f.Get())
		}
	}
	for _, f := range []*updatefield.Scalar[uint32]{d.PlayerFlags, d.PlayerFlagsEx, d.GuildRankID, d.GuildDeleteDate} {
		if f.Changed(m) {
			w.WriteUint32(f.Get())
		}
	}
	if d.GuildLevel.Changed(m) {
		w.WriteInt32(d.GuildLevel.Get())
	}
	for _, f := range []*updatefield.Scalar[uint8]{d.PartyType, d.NativeSex, d.Inebriation, d.PvpTitle, d.ArenaFaction} {
		if f.Changed(m) {
			w.WriteUint8(f.Get())
		}
	}
	if d.DuelTeam.Changed(m) {
		w.WriteUint32(d.DuelTeam.Get())
	}
	for _, f := range []*updatefield.Scalar[int32]{d.GuildTimeStamp, d.PlayerTitle, d.FakeInebriation} {
		if f.Changed(m) {
			w.WriteInt32(f.Get())
		}
	}
	for _, f := range []*updatefield.Scalar[uint32]{d.VirtualPlayerRealm, d.CurrentSpecID} {
		if f.Changed(m) {
			w.WriteUint32(f.Get())
		}
	}
	if d.TaxiMountAnimKitID.Changed(m) {
		w.WriteInt32(d.TaxiMountAnimKitID.Get())
	}
	if d.CurrentBattlePetBreedQuality.Changed(m) {
		w.WriteUint8(d.CurrentBattlePetBreedQuality.Get())
	}
	if d.HonorLevel.Changed(m) {
		w.WriteInt32(d.HonorLevel.Get())
	}
	if d.LogoutTime.Changed(m) {
		w.WriteInt64(d.LogoutTime.Get())
	}
	if d.CtrOptions.Changed(m) {
		d.CtrOptions.Get().write(w)
	}
	for _, f := range []*updatefield.Scalar[int32]{d.CovenantID, d.SoulbindID} {
		if f.Changed(m) {
			w.WriteInt32(f.Get())
		}
	}
	if d.DeclinedNames.Changed(m) {
		if w.WriteBit(d.DeclinedNames.Has()) {
			w.FlushBits()
			d.DeclinedNames.Value().WriteUpdate(w, false)
		}
		w.FlushBits()
	}
	if d.PersonalTabard.Changed(m) {
		d.PersonalTabard.Get().WriteUpdate(w, false)
	}
	if d.QuestLog.Changed(m) {
		w.WriteBit(full)
		w.FlushBits()
		d.QuestLog.EachChanged(m, func(_ int, q *QuestLog) { writeQuestLog(w, q, full) })
	}
	d.VisibleItems.EachChanged(m, func(_ int, v *VisibleItem) { v.WriteUpdate(w, false) })
	d.AvgItemLevel.EachChanged(m, func(_ int, v float32) { w.WriteFloat32(v) })
}
