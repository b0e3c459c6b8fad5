package replication

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"fieldsync/internal/bitpack"
	"fieldsync/internal/config"
	"fieldsync/internal/entity"
	"fieldsync/internal/visibility"
)

// =============================================================================
// BENCHMARK SUITE: REPLICATION TICK
// Run with: go test -bench=. -benchmem ./internal/replication/...
// =============================================================================

func BenchmarkTick_10Observers_100Creatures(b *testing.B)  { benchmarkTick(b, 10, 100) }
func BenchmarkTick_50Observers_500Creatures(b *testing.B)  { benchmarkTick(b, 50, 500) }
func BenchmarkTick_100Observers_1000Creatures(b *testing.B) { benchmarkTick(b, 100, 1000) }

func benchmarkTick(b *testing.B, observers, creatures int) {
	cfg := config.DefaultReplication()
	cfg.WorldSize = 1000
	w := NewWorld(cfg, visibility.DefaultStore())
	rng := rand.New(rand.NewSource(1))
	pos := func() mgl32.Vec3 {
		return mgl32.Vec3{rng.Float32() * cfg.WorldSize, rng.Float32() * cfg.WorldSize, 0}
	}

	units := make([]*entity.Object, 0, creatures)
	for i := 0; i < creatures; i++ {
		c := entity.NewCreature(bitpack.MakeGUID(bitpack.HighCreature, 299, uint64(i+1)), 299, pos())
		if err := w.Spawn(c); err != nil {
			b.Fatal(err)
		}
		units = append(units, c)
	}
	discard := func([]byte) error { return nil }
	for i := 0; i < observers; i++ {
		p := entity.NewPlayer(bitpack.MakeGUID(bitpack.HighPlayer, 0, uint64(i+1)), pos())
		if err := w.Spawn(p); err != nil {
			b.Fatal(err)
		}
		if err := w.AddObserver(p, discard); err != nil {
			b.Fatal(err)
		}
	}
	w.Tick()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		for j := 0; j < len(units)/10; j++ {
			u := units[rng.Intn(len(units))].Values.Unit
			u.Health.Set(int64(rng.Intn(100)))
		}
		w.Tick()
	}
}
