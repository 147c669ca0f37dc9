package systems

import (
	"cmp"
	"math"
	"slices"

	"github.com/mlange-42/ark/ecs"
	"github.com/ojrac/opensimplex-go"

	"github.com/ersanchez/laguna/components"
	"github.com/ersanchez/laguna/config"
)

// Decision is the desired motion computed for one animal this tick.
// Decisions are computed against the pre-tick world state and applied
// afterwards, so evaluation order (and parallel fan-out) cannot leak
// another entity's already-updated position into the same tick.
type Decision struct {
	TargetX, TargetY float32
	SpeedMult        float32
	State            components.State
	TargetID         uint32
	Move             bool
}

// Behavior computes per-species steering decisions from spatial queries.
// All randomness comes from the seeded noise field, keyed by entity noise
// offset and simulated time, so decisions are deterministic and safe to
// evaluate concurrently.
type Behavior struct {
	grid   *SpatialGrid
	posMap *ecs.Map1[components.Position]
	velMap *ecs.Map1[components.Velocity]
	vitMap *ecs.Map1[components.Vitals]
	orgMap *ecs.Map1[components.Organism]

	// lookup resolves an entity id to its live ECS entity.
	lookup func(id uint32) (ecs.Entity, bool)

	noise opensimplex.Noise
	cfg   *config.Config

	worldW, worldH float32
}

// NewBehavior creates the behavior engine for a world.
func NewBehavior(w *ecs.World, grid *SpatialGrid, cfg *config.Config, seed int64, lookup func(id uint32) (ecs.Entity, bool)) *Behavior {
	return &Behavior{
		grid:   grid,
		posMap: ecs.NewMap1[components.Position](w),
		velMap: ecs.NewMap1[components.Velocity](w),
		vitMap: ecs.NewMap1[components.Vitals](w),
		orgMap: ecs.NewMap1[components.Organism](w),
		lookup: lookup,
		noise:  opensimplex.New(seed),
		cfg:    cfg,
		worldW: cfg.Derived.WorldW32,
		worldH: cfg.Derived.WorldH32,
	}
}

// Decide computes the steering decision for one animal. t is the simulated
// time in seconds, scratch a reusable neighbor buffer owned by the caller.
func (b *Behavior) Decide(e ecs.Entity, pos components.Position, vel components.Velocity, vit components.Vitals, org components.Organism, t float64, scratch *[]Neighbor) Decision {
	switch org.Species {
	case components.SpeciesPez:
		return b.decidePez(e, pos, vit, org, t, scratch)
	case components.SpeciesTrucha:
		return b.decideTrucha(e, pos, vit, org, t, scratch)
	case components.SpeciesTiburon:
		return b.decideTiburon(e, pos, vit, org, t, scratch)
	}
	return Decision{State: components.StateIdle}
}

// decidePez: survival first, then hunger, then schooling, then wander.
func (b *Behavior) decidePez(e ecs.Entity, pos components.Position, vit components.Vitals, org components.Organism, t float64, scratch *[]Neighbor) Decision {
	sp := &b.cfg.Pez
	bh := &b.cfg.Behavior

	queryRadius := float32(math.Max(sp.ThreatRadius, sp.VisionRadius))
	*scratch = b.grid.QueryRadiusInto((*scratch)[:0], pos.X, pos.Y, queryRadius, e, b.posMap)
	neighbors := *scratch

	// 1) Flee the nearest predator in threat range.
	if n, ok := b.nearestThreat(neighbors, components.SpeciesPez, float32(sp.ThreatRadius)); ok {
		return b.flee(pos, org, n, float32(sp.FleeDistance), float32(sp.EscapeSpeed), t)
	}

	// 2) Hungry: head for the nearest edible alga.
	if vit.Energy < vit.MaxEnergy*float32(sp.Hunger) {
		if n, target, ok := b.nearestEdibleAlga(neighbors, float32(sp.VisionRadius)); ok {
			tp := b.posOf(n.E, pos)
			return Decision{
				TargetX: tp.X, TargetY: tp.Y,
				SpeedMult: 1, State: components.StateGrazing,
				TargetID: target, Move: true,
			}
		}
	}

	// 3) Schooling: cohesion + alignment + separation over same-kind
	// neighbors. No leader; grouping is emergent from the three terms.
	var sumX, sumY, velX, velY, sepX, sepY float32
	count := 0
	visionSq := float32(sp.VisionRadius * sp.VisionRadius)
	sepDist := float32(bh.SeparationDistance)
	for _, n := range neighbors {
		if n.DistSq > visionSq {
			continue
		}
		no := b.orgMap.Get(n.E)
		nv := b.vitMap.Get(n.E)
		if no == nil || nv == nil || !nv.Alive || no.Species != components.SpeciesPez {
			continue
		}
		sumX += pos.X + n.DX
		sumY += pos.Y + n.DY
		if v := b.velMap.Get(n.E); v != nil {
			velX += v.X
			velY += v.Y
		}
		dist := sqrt32(n.DistSq)
		if dist > 0 && dist < sepDist {
			sepX -= n.DX / dist
			sepY -= n.DY / dist
		}
		count++
	}
	if count >= bh.SchoolMinNeighbors {
		inv := 1 / float32(count)
		cohX := (sumX*inv - pos.X) * float32(bh.CohesionWeight)
		cohY := (sumY*inv - pos.Y) * float32(bh.CohesionWeight)
		alignX := velX * inv * float32(bh.AlignmentWeight)
		alignY := velY * inv * float32(bh.AlignmentWeight)
		return Decision{
			TargetX:   pos.X + cohX + alignX + sepX*float32(bh.SeparationWeight),
			TargetY:   pos.Y + cohY + alignY + sepY*float32(bh.SeparationWeight),
			SpeedMult: 1, State: components.StateSchooling, Move: true,
		}
	}

	return b.wander(pos, org, t, 1, components.StateWandering)
}

// decideTrucha: flee sharks, hunt fish (alone or joining a pack), loosely
// group with other trout otherwise.
func (b *Behavior) decideTrucha(e ecs.Entity, pos components.Position, vit components.Vitals, org components.Organism, t float64, scratch *[]Neighbor) Decision {
	sp := &b.cfg.Trucha
	bh := &b.cfg.Behavior

	queryRadius := float32(math.Max(sp.VisionRadius, math.Max(sp.ThreatRadius, bh.PackRadius)))
	*scratch = b.grid.QueryRadiusInto((*scratch)[:0], pos.X, pos.Y, queryRadius, e, b.posMap)
	neighbors := *scratch

	if n, ok := b.nearestThreat(neighbors, components.SpeciesTrucha, float32(sp.ThreatRadius)); ok {
		return b.flee(pos, org, n, float32(sp.FleeDistance), float32(sp.EscapeSpeed), t)
	}

	hungry := vit.Energy < vit.MaxEnergy*float32(sp.Hunger)
	if hungry {
		// Keep a locked target while it stays alive and visible.
		targetID := org.TargetID
		te, ok := b.resolvePrey(targetID, components.SpeciesPez, pos, float32(sp.VisionRadius))
		if !ok {
			te, targetID, ok = b.nearestPrey(neighbors, components.SpeciesPez, float32(sp.VisionRadius))
		}
		if !ok {
			// No prey in sight: join a nearby pack that already has one,
			// as long as the pack is not full.
			te, targetID, ok = b.joinPack(neighbors, pos)
		}
		if ok {
			px, py := b.predictedPosition(te, float32(bh.Lookahead))
			return Decision{
				TargetX: px, TargetY: py,
				SpeedMult: 1, State: components.StateHunting,
				TargetID: targetID, Move: true,
			}
		}
	}

	// Loose grouping: drift toward the local trout center.
	var sumX, sumY float32
	count := 0
	groupSq := float32(120 * 120)
	for _, n := range neighbors {
		if n.DistSq > groupSq {
			continue
		}
		no := b.orgMap.Get(n.E)
		nv := b.vitMap.Get(n.E)
		if no == nil || nv == nil || !nv.Alive || no.Species != components.SpeciesTrucha {
			continue
		}
		sumX += pos.X + n.DX
		sumY += pos.Y + n.DY
		count++
	}
	if count > 0 {
		inv := 1 / float32(count)
		jx := float32(b.noise.Eval2(t*bh.WanderFrequency, float64(org.NoiseOffset)+3.1)) * 30
		jy := float32(b.noise.Eval2(t*bh.WanderFrequency, float64(org.NoiseOffset)+7.9)) * 20
		return Decision{
			TargetX: sumX*inv + jx, TargetY: sumY*inv + jy,
			SpeedMult: 1, State: components.StateWandering, Move: true,
		}
	}

	return b.wander(pos, org, t, 1, components.StateWandering)
}

// decideTiburon: persistent pursuit with lookahead prediction, hunger-scaled
// hunt radius, smoothed patrol toward the world center when nothing is near.
func (b *Behavior) decideTiburon(e ecs.Entity, pos components.Position, vit components.Vitals, org components.Organism, t float64, scratch *[]Neighbor) Decision {
	sp := &b.cfg.Tiburon
	bh := &b.cfg.Behavior

	fullness := float32(0)
	if vit.MaxEnergy > 0 {
		fullness = vit.Energy / vit.MaxEnergy
	}
	huntRadius := float32(bh.SharkHuntRelaxed)
	if fullness < float32(sp.Hunger) {
		huntRadius = float32(bh.SharkHuntHungry)
	}

	// Locked target survives as long as the trout lives and stays within
	// the persistence range, even outside the hunt radius.
	targetID := org.TargetID
	te, ok := b.resolvePrey(targetID, components.SpeciesTrucha, pos, float32(bh.TargetPersistence))
	if !ok {
		*scratch = b.grid.QueryRadiusInto((*scratch)[:0], pos.X, pos.Y, huntRadius, e, b.posMap)
		te, targetID, ok = b.nearestPrey(*scratch, components.SpeciesTrucha, huntRadius)
	}
	if ok {
		px, py := b.predictedPosition(te, float32(bh.Lookahead))
		return Decision{
			TargetX: px, TargetY: py,
			SpeedMult: 1, State: components.StateHunting,
			TargetID: targetID, Move: true,
		}
	}

	// Patrol: smoothed noise drift biased toward the center of the world.
	cx, cy := b.worldW/2, b.worldH/2
	nx := float32(b.noise.Eval2(t*bh.WanderFrequency, float64(org.NoiseOffset)+13.7))
	ny := float32(b.noise.Eval2(t*bh.WanderFrequency, float64(org.NoiseOffset)+71.3))
	return Decision{
		TargetX:   cx + nx*float32(bh.PatrolSpread),
		TargetY:   cy + ny*float32(bh.PatrolSpread)*0.66,
		SpeedMult: float32(bh.PatrolSpeed),
		State:     components.StatePatrolling,
		Move:      true,
	}
}

// flee steers directly away from the threat, perturbed by the entity's
// persistent noise channel so a school scattering from one predator fans
// out instead of collapsing onto a single escape vector.
func (b *Behavior) flee(pos components.Position, org components.Organism, threat Neighbor, fleeDistance, speedMult float32, t float64) Decision {
	bh := &b.cfg.Behavior

	dist := sqrt32(threat.DistSq)
	if dist <= 0 {
		dist = 1
	}
	away := math.Atan2(float64(-threat.DY), float64(-threat.DX))
	jitter := b.noise.Eval2(t*bh.WanderFrequency*2, float64(org.NoiseOffset)+5.5) * bh.EvasionNoise
	angle := away + jitter

	return Decision{
		TargetX:   pos.X + float32(math.Cos(angle))*fleeDistance,
		TargetY:   pos.Y + float32(math.Sin(angle))*fleeDistance,
		SpeedMult: speedMult,
		State:     components.StateFleeing,
		Move:      true,
	}
}

// wander projects a target along a noise-driven heading. The heading
// changes smoothly with time, never jumping tick to tick.
func (b *Behavior) wander(pos components.Position, org components.Organism, t float64, speedMult float32, state components.State) Decision {
	bh := &b.cfg.Behavior
	angle := b.noise.Eval2(t*bh.WanderFrequency, float64(org.NoiseOffset)) * math.Pi * 2
	return Decision{
		TargetX:   pos.X + float32(math.Cos(angle)*bh.WanderDistance),
		TargetY:   pos.Y + float32(math.Sin(angle)*bh.WanderDistance),
		SpeedMult: speedMult,
		State:     state,
		Move:      true,
	}
}

// nearestThreat returns the closest living predator of the given species
// within radius.
func (b *Behavior) nearestThreat(neighbors []Neighbor, of components.Species, radius float32) (Neighbor, bool) {
	threats := of.Threats()
	if len(threats) == 0 || radius <= 0 {
		return Neighbor{}, false
	}
	radiusSq := radius * radius

	var best Neighbor
	bestID := uint32(math.MaxUint32)
	found := false
	for _, n := range neighbors {
		if n.DistSq > radiusSq {
			continue
		}
		no := b.orgMap.Get(n.E)
		nv := b.vitMap.Get(n.E)
		if no == nil || nv == nil || !nv.Alive {
			continue
		}
		match := false
		for _, ts := range threats {
			if no.Species == ts {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		if !found || n.DistSq < best.DistSq || (n.DistSq == best.DistSq && no.ID < bestID) {
			best = n
			bestID = no.ID
			found = true
		}
	}
	return best, found
}

// nearestPrey returns the closest living entity of the prey species within
// radius. Ties break toward the lowest entity id so runs are reproducible.
func (b *Behavior) nearestPrey(neighbors []Neighbor, prey components.Species, radius float32) (ecs.Entity, uint32, bool) {
	radiusSq := radius * radius

	var best ecs.Entity
	var bestID uint32
	bestDist := float32(math.MaxFloat32)
	found := false
	for _, n := range neighbors {
		if n.DistSq > radiusSq {
			continue
		}
		no := b.orgMap.Get(n.E)
		nv := b.vitMap.Get(n.E)
		if no == nil || nv == nil || !nv.Alive || no.Species != prey {
			continue
		}
		if !found || n.DistSq < bestDist || (n.DistSq == bestDist && no.ID < bestID) {
			best = n.E
			bestID = no.ID
			bestDist = n.DistSq
			found = true
		}
	}
	return best, bestID, found
}

// nearestEdibleAlga returns the closest alga grown enough to be worth eating.
func (b *Behavior) nearestEdibleAlga(neighbors []Neighbor, radius float32) (Neighbor, uint32, bool) {
	minGrowth := float32(b.cfg.Alga.MinEdibleGrowth)
	radiusSq := radius * radius

	var best Neighbor
	var bestID uint32
	found := false
	for _, n := range neighbors {
		if n.DistSq > radiusSq {
			continue
		}
		no := b.orgMap.Get(n.E)
		nv := b.vitMap.Get(n.E)
		if no == nil || nv == nil || !nv.Alive || no.Species != components.SpeciesAlga {
			continue
		}
		if no.Growth < minGrowth {
			continue
		}
		if !found || n.DistSq < best.DistSq || (n.DistSq == best.DistSq && no.ID < bestID) {
			best = n
			bestID = no.ID
			found = true
		}
	}
	return best, bestID, found
}

// resolvePrey checks whether a locked target id still refers to a living
// entity of the expected species within range of pos.
func (b *Behavior) resolvePrey(id uint32, prey components.Species, pos components.Position, maxDist float32) (ecs.Entity, bool) {
	if id == 0 {
		return ecs.Entity{}, false
	}
	e, ok := b.lookup(id)
	if !ok {
		return ecs.Entity{}, false
	}
	no := b.orgMap.Get(e)
	nv := b.vitMap.Get(e)
	np := b.posMap.Get(e)
	if no == nil || nv == nil || np == nil || !nv.Alive || no.Species != prey {
		return ecs.Entity{}, false
	}
	dx := np.X - pos.X
	dy := np.Y - pos.Y
	if dx*dx+dy*dy > maxDist*maxDist {
		return ecs.Entity{}, false
	}
	return e, true
}

// joinPack looks for an ally trout already hunting and adopts its target,
// provided the pack is below the size cap. Targets are read from the
// previous tick's state, so membership lags one tick behind.
func (b *Behavior) joinPack(neighbors []Neighbor, pos components.Position) (ecs.Entity, uint32, bool) {
	bh := &b.cfg.Behavior
	packSq := float32(bh.PackRadius * bh.PackRadius)

	// Count hunters per target among nearby trout, keeping the closest
	// ally distance per target.
	packSize := make(map[uint32]int, 4)
	nearest := make(map[uint32]float32, 4)
	for _, n := range neighbors {
		if n.DistSq > packSq {
			continue
		}
		no := b.orgMap.Get(n.E)
		nv := b.vitMap.Get(n.E)
		if no == nil || nv == nil || !nv.Alive || no.Species != components.SpeciesTrucha {
			continue
		}
		if no.State != components.StateHunting || no.TargetID == 0 {
			continue
		}
		packSize[no.TargetID]++
		if d, ok := nearest[no.TargetID]; !ok || n.DistSq < d {
			nearest[no.TargetID] = n.DistSq
		}
	}

	// Walk targets closest-ally first so a full pack falls through to
	// the next one instead of leaving the trout without a hunt.
	type packTarget struct {
		id     uint32
		distSq float32
	}
	targets := make([]packTarget, 0, len(nearest))
	for id, d := range nearest {
		targets = append(targets, packTarget{id: id, distSq: d})
	}
	slices.SortFunc(targets, func(a, c packTarget) int {
		if a.distSq != c.distSq {
			return cmp.Compare(a.distSq, c.distSq)
		}
		return cmp.Compare(a.id, c.id)
	})
	for _, tg := range targets {
		if packSize[tg.id] >= bh.MaxPackSize {
			continue
		}
		// The adopted target must still be a living fish somewhere
		// reachable.
		if e, ok := b.resolvePrey(tg.id, components.SpeciesPez, pos, float32(bh.TargetPersistence)); ok {
			return e, tg.id, true
		}
	}
	return ecs.Entity{}, 0, false
}

// predictedPosition extrapolates the prey's position along its current
// velocity over the lookahead horizon, clamped into the world.
func (b *Behavior) predictedPosition(prey ecs.Entity, lookahead float32) (float32, float32) {
	pp := b.posMap.Get(prey)
	if pp == nil {
		return 0, 0
	}
	x, y := pp.X, pp.Y
	if pv := b.velMap.Get(prey); pv != nil {
		x += pv.X * lookahead
		y += pv.Y * lookahead
	}
	return clamp32(x, 0, b.worldW-1), clamp32(y, 0, b.worldH-1)
}

// posOf returns the neighbor's position, falling back to the querier's own.
func (b *Behavior) posOf(e ecs.Entity, fallback components.Position) components.Position {
	if p := b.posMap.Get(e); p != nil {
		return *p
	}
	return fallback
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
