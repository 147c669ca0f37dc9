package world

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/ersanchez/laguna/components"
	"github.com/ersanchez/laguna/systems"
)

// steeringFactor blends the previous velocity into the desired one, so
// animals turn over a few ticks instead of snapping to a new heading.
const steeringFactor = 0.35

// Tick advances the simulation one step. The step order is fixed:
// clock, grid rebuild, decisions and movement, feeding, metabolism,
// reproduction, flora, population floors, purge. A no-op unless running.
func (w *World) Tick() {
	if w.state != RunRunning {
		return
	}

	dt := w.cfg.Derived.DT32
	w.clock.Advance()
	w.tick++

	season := w.clock.Season().Modifiers()
	phase := w.clock.Phase().Modifiers()

	w.rebuildGrid()
	w.stepMovement(dt, season.Movement*phase.Movement)
	w.stepFeeding()
	w.stepMetabolism(dt, season.EnergyDrain*phase.EnergyDrain)
	w.stepReproduction(season.Fertility, phase.ReproductionAllowed)
	w.stepFlora(dt, season.PlantRegen)
	w.flushBirths()
	w.enforceFloors()
	w.purgeDead()

	if w.collector != nil {
		w.collector.ObserveTick(w.tick, w.counts, w.clock.Season(), w.clock.Phase())
	}
}

// rebuildGrid re-files every live entity. Cell membership is then stable
// for the rest of the tick except for explicit Update calls on movement.
func (w *World) rebuildGrid() {
	w.grid.Clear()

	query := w.filter.Query()
	for query.Next() {
		pos, _, vit, _ := query.Get()
		if !vit.Alive {
			continue
		}
		w.grid.Insert(query.Entity(), pos.X, pos.Y)
	}
}

// stepMovement computes behavior decisions against a frozen pre-tick
// snapshot, in parallel when the population warrants it, then applies
// the resulting velocities and positions sequentially.
func (w *World) stepMovement(dt, moveMult float32) {
	w.par.snapshots = w.par.snapshots[:0]

	query := w.filter.Query()
	for query.Next() {
		pos, vel, vit, org := query.Get()
		if !vit.Alive || !org.Species.IsAnimal() {
			continue
		}
		w.par.snapshots = append(w.par.snapshots, entitySnapshot{
			Entity: query.Entity(),
			Pos:    *pos,
			Vel:    *vel,
			Vit:    *vit,
			Org:    *org,
		})
	}

	n := len(w.par.snapshots)
	if n == 0 {
		return
	}

	if cap(w.par.intents) < n {
		w.par.intents = make([]intent, n)
	}
	w.par.intents = w.par.intents[:n]

	chunk := workChunk{
		dt:       dt,
		moveMult: moveMult,
		simTime:  float64(w.tick) * float64(dt),
	}
	if n < parallelThreshold {
		chunk.start, chunk.end = 0, n
		w.computeChunk(chunk, &w.par.scratches[0])
	} else {
		w.par.dispatch(w, n, chunk)
	}

	w.applyIntents()
}

// computeChunk processes a range of snapshots for one worker. Pure reads
// of pre-tick state; all writes go to the worker's own intent slots.
func (w *World) computeChunk(chunk workChunk, scratch *workerScratch) {
	worldW := w.cfg.Derived.WorldW32
	worldH := w.cfg.Derived.WorldH32
	speedScale := float32(w.cfg.Physics.SpeedScale)

	for i := chunk.start; i < chunk.end; i++ {
		snap := &w.par.snapshots[i]
		out := &w.par.intents[i]

		d := w.behavior.Decide(snap.Entity, snap.Pos, snap.Vel, snap.Vit, snap.Org, chunk.simTime, &scratch.Neighbors)
		out.State = d.State
		out.TargetID = d.TargetID
		out.Faulted = false

		if !d.Move {
			out.VelX, out.VelY = 0, 0
			out.PosX, out.PosY = snap.Pos.X, snap.Pos.Y
			continue
		}

		dirX := d.TargetX - snap.Pos.X
		dirY := d.TargetY - snap.Pos.Y
		dist := float32(math.Sqrt(float64(dirX*dirX + dirY*dirY)))

		speed := snap.Org.BaseSpeed * d.SpeedMult * chunk.moveMult * speedScale
		var desiredX, desiredY float32
		if dist > 1e-3 {
			desiredX = dirX / dist * speed
			desiredY = dirY / dist * speed
		}

		velX := snap.Vel.X + (desiredX-snap.Vel.X)*steeringFactor
		velY := snap.Vel.Y + (desiredY-snap.Vel.Y)*steeringFactor

		posX := snap.Pos.X + velX*chunk.dt
		posY := snap.Pos.Y + velY*chunk.dt

		// Reflect off the world edges; the world is bounded, not toroidal.
		if posX < 0 {
			posX = -posX
			velX = -velX
		} else if posX > worldW-1 {
			posX = 2*(worldW-1) - posX
			velX = -velX
		}
		if posY < 0 {
			posY = -posY
			velY = -velY
		} else if posY > worldH-1 {
			posY = 2*(worldH-1) - posY
			velY = -velY
		}

		if !finite(posX) || !finite(posY) || !finite(velX) || !finite(velY) {
			out.Faulted = true
			out.VelX, out.VelY = 0, 0
			out.PosX, out.PosY = snap.Pos.X, snap.Pos.Y
			continue
		}

		out.VelX = velX
		out.VelY = velY
		out.PosX = clampf(posX, 0, worldW-1)
		out.PosY = clampf(posY, 0, worldH-1)
	}
}

// applyIntents writes computed movement back to components, in snapshot
// order, and re-files moved entities in the grid.
func (w *World) applyIntents() {
	for i := range w.par.snapshots {
		snap := &w.par.snapshots[i]
		out := &w.par.intents[i]

		pos := w.posMap.Get(snap.Entity)
		vel := w.velMap.Get(snap.Entity)
		org := w.orgMap.Get(snap.Entity)
		if pos == nil || vel == nil || org == nil {
			continue
		}

		if out.Faulted {
			w.log.Warn("non-finite movement result, position held",
				"id", snap.Org.ID, "species", snap.Org.Species.String())
		}

		oldX, oldY := pos.X, pos.Y
		pos.X, pos.Y = out.PosX, out.PosY
		vel.X, vel.Y = out.VelX, out.VelY
		org.State = out.State
		org.TargetID = out.TargetID

		w.grid.Update(snap.Entity, oldX, oldY, pos.X, pos.Y)
	}
}

// stepFeeding resolves meals in snapshot order. Each eater takes at most
// one prey per tick, the nearest living one within capture range, ties
// broken toward the lowest id. A prey killed earlier in the pass cannot
// be eaten again.
func (w *World) stepFeeding() {
	scratch := &w.par.scratches[0]

	for i := range w.par.snapshots {
		snap := &w.par.snapshots[i]
		preySpecies, ok := snap.Org.Species.Prey()
		if !ok {
			continue
		}

		eaterVit := w.vitMap.Get(snap.Entity)
		eaterPos := w.posMap.Get(snap.Entity)
		eaterOrg := w.orgMap.Get(snap.Entity)
		if eaterVit == nil || eaterPos == nil || eaterOrg == nil || !eaterVit.Alive {
			continue
		}
		if eaterVit.Energy >= eaterVit.MaxEnergy {
			continue
		}

		sc := w.cfg.Animal(snap.Org.Species)
		captureRadius := float32(sc.CaptureRadius)

		scratch.Neighbors = w.grid.QueryRadiusInto(
			scratch.Neighbors[:0],
			eaterPos.X, eaterPos.Y, captureRadius,
			snap.Entity, w.posMap,
		)

		prey, preyOrg := w.nearestMeal(scratch.Neighbors, preySpecies)
		if preyOrg == nil {
			continue
		}
		preyVit := w.vitMap.Get(prey)
		if preyVit == nil {
			continue
		}

		var gain float32
		if preySpecies == components.SpeciesAlga {
			gain = systems.Graze(eaterVit, preyVit, float32(w.cfg.Alga.EnergyValue), preyOrg.Growth)
		} else {
			gain = systems.Consume(eaterVit, preyVit, float32(sc.FeedingGain), float32(sc.FeedingFrac))
		}

		if eaterOrg.TargetID == preyOrg.ID {
			eaterOrg.TargetID = 0
		}
		if w.collector != nil {
			w.collector.RecordMeal(snap.Org.Species, gain)
		}
	}
}

// nearestMeal picks the closest living entity of the prey species.
// For algae, only edible growth stages count.
func (w *World) nearestMeal(neighbors []systems.Neighbor, prey components.Species) (ecs.Entity, *components.Organism) {
	minGrowth := float32(w.cfg.Alga.MinEdibleGrowth)

	var best ecs.Entity
	var bestOrg *components.Organism
	bestDist := float32(math.MaxFloat32)
	bestID := uint32(math.MaxUint32)
	for _, n := range neighbors {
		org := w.orgMap.Get(n.E)
		vit := w.vitMap.Get(n.E)
		if org == nil || vit == nil || !vit.Alive || org.Species != prey {
			continue
		}
		if prey == components.SpeciesAlga && org.Growth < minGrowth {
			continue
		}
		if n.DistSq < bestDist || (n.DistSq == bestDist && org.ID < bestID) {
			best = n.E
			bestOrg = org
			bestDist = n.DistSq
			bestID = org.ID
		}
	}
	return best, bestOrg
}

// stepMetabolism drains and ages every animal. Algae neither drain nor
// age out; they die only by being eaten.
func (w *World) stepMetabolism(dt, drainMult float32) {
	query := w.filter.Query()
	for query.Next() {
		_, _, vit, org := query.Get()
		if !vit.Alive || !org.Species.IsAnimal() {
			continue
		}
		drain := float32(w.cfg.Animal(org.Species).Drain) * drainMult
		systems.Metabolize(vit, drain, dt)
	}
}

// stepReproduction rolls birth chances for animals that pass the energy
// and age gates. Births are queued and spawned after iteration; the
// parent pays the full child starting energy, so reproduction never
// creates energy.
func (w *World) stepReproduction(fertility [components.NumSpecies]float32, allowed bool) {
	if !allowed {
		return
	}

	query := w.filter.Query()
	for query.Next() {
		pos, _, vit, org := query.Get()
		if !vit.Alive || !org.Species.IsAnimal() {
			continue
		}

		sc := w.cfg.Animal(org.Species)
		rp := &sc.Reproduction

		if vit.Energy < vit.MaxEnergy*float32(rp.EnergyMinFrac) {
			continue
		}
		if float64(vit.Age) < rp.AgeMin || float64(vit.Age) > rp.AgeMax {
			continue
		}
		if w.counts[org.Species]+w.pending[org.Species] >= w.cfg.Population.Max.Get(org.Species) {
			continue
		}

		chance := rp.Chance * float64(fertility[org.Species])
		if w.rng.Float64() >= chance {
			continue
		}

		cost := float32(rp.Cost)
		vit.Energy -= cost
		bx, by := w.offsetPosition(pos.X, pos.Y, 24)
		w.births = append(w.births, birthRequest{
			species: org.Species,
			x:       bx, y: by,
			energy: cost,
		})
		w.pending[org.Species]++
	}
}

// stepFlora grows algae by the season-scaled rate and seeds sprouts from
// fully grown ones under the local density cap.
func (w *World) stepFlora(dt, regen float32) {
	scratch := &w.par.scratches[0]
	algaCfg := &w.cfg.Alga

	query := w.filter.Query()
	for query.Next() {
		pos, _, vit, org := query.Get()
		if !vit.Alive || org.Species != components.SpeciesAlga {
			continue
		}

		systems.GrowAlga(org, vit, algaCfg, regen, dt)

		if org.Growth < 100 {
			continue
		}
		if w.counts[components.SpeciesAlga]+w.pending[components.SpeciesAlga] >= w.cfg.Population.Max.Algas {
			continue
		}
		if w.rng.Float64() >= algaCfg.SpawnChance*float64(regen) {
			continue
		}
		if !systems.CanSeed(w.grid, w.posMap, w.orgMap, w.vitMap, query.Entity(), org, pos.X, pos.Y, algaCfg, &scratch.Neighbors) {
			continue
		}

		bx, by := w.offsetPosition(pos.X, pos.Y, float32(algaCfg.SpawnOffset))
		w.births = append(w.births, birthRequest{
			species: components.SpeciesAlga,
			x:       bx, y: by,
			growth: float32(algaCfg.SproutGrowth),
		})
		w.pending[components.SpeciesAlga]++

		// Seeding costs the parent part of its biomass.
		org.Growth = float32(algaCfg.RegrowthReserve)
		vit.Energy = float32(algaCfg.EnergyValue) * org.Growth / 100
	}
}

// flushBirths spawns everything queued this tick.
func (w *World) flushBirths() {
	for _, b := range w.births {
		if b.species == components.SpeciesAlga {
			w.spawnAlga(b.x, b.y, b.growth)
		} else {
			w.spawnAnimal(b.species, b.x, b.y, b.energy)
		}
		if w.collector != nil {
			w.collector.RecordBirth(b.species)
		}
	}
	w.births = w.births[:0]
	w.pending = [components.NumSpecies]int{}
}

// enforceFloors keeps populations above their configured minimums. Only
// algae have a floor by default; without it a grazed-out world could
// never recover.
func (w *World) enforceFloors() {
	for s := components.Species(0); s < components.NumSpecies; s++ {
		minCount := w.cfg.Population.Min.Get(s)
		for w.counts[s] < minCount {
			x, y := w.randomPosition()
			if s == components.SpeciesAlga {
				w.spawnAlga(x, y, 20+w.rng.Float32()*40)
			} else {
				w.spawnAnimal(s, x, y, float32(w.cfg.Animal(s).Energy))
			}
			if w.collector != nil {
				w.collector.RecordBirth(s)
			}
		}
	}
}

// purgeDead removes everything that died this tick. Collection and
// removal are separate passes; removing while a query is open would
// invalidate it.
func (w *World) purgeDead() {
	type deadInfo struct {
		entity  ecs.Entity
		id      uint32
		species components.Species
		x, y    float32
	}
	var toRemove []deadInfo

	query := w.filter.Query()
	for query.Next() {
		pos, _, vit, org := query.Get()
		if vit.Alive {
			continue
		}
		toRemove = append(toRemove, deadInfo{
			entity:  query.Entity(),
			id:      org.ID,
			species: org.Species,
			x:       pos.X, y: pos.Y,
		})
	}

	for _, dead := range toRemove {
		w.grid.Remove(dead.entity, dead.x, dead.y)
		delete(w.byID, dead.id)
		w.counts[dead.species]--
		w.mapper.Remove(dead.entity)
		if w.collector != nil {
			w.collector.RecordDeath(dead.species)
		}
	}
}

// offsetPosition displaces a point by up to radius in a random direction,
// clamped into the world.
func (w *World) offsetPosition(x, y, radius float32) (float32, float32) {
	angle := w.rng.Float64() * 2 * math.Pi
	r := w.rng.Float32() * radius
	nx := x + float32(math.Cos(angle))*r
	ny := y + float32(math.Sin(angle))*r
	return clampf(nx, 0, w.cfg.Derived.WorldW32-1), clampf(ny, 0, w.cfg.Derived.WorldH32-1)
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
