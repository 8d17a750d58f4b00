package state

import (
	"log/slog"
	"maps"

	"github.com/jwebster45206/anima-narrator/pkg/actor"
	"github.com/jwebster45206/anima-narrator/pkg/world"
)

// DeltaWorker applies a StateUpdate to a GameState.
type DeltaWorker struct {
	gs     *GameState
	delta  *StateUpdate
	logger *slog.Logger
}

// NewDeltaWorker creates a worker for one update. gs is treated as read-only.
func NewDeltaWorker(gs *GameState, delta *StateUpdate, logger *slog.Logger) *DeltaWorker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DeltaWorker{
		gs:     gs,
		delta:  delta,
		logger: logger,
	}
}

// Apply returns a new GameState with the update applied and the turn recorded
// in recent memory. The input state is never modified, and malformed or
// unmatched fragments are skipped rather than reported as errors.
func (dw *DeltaWorker) Apply(command, narrative string) *GameState {
	next := dw.gs.Clone()
	if next == nil {
		next = NewGameState()
	}

	if dw.delta != nil && len(dw.delta.Dropped) > 0 {
		dw.logger.Warn("Dropped malformed state update fragments",
			"game_id", next.ID.String(),
			"paths", dw.delta.Dropped)
	}

	if !dw.delta.IsEmpty() {
		if p := dw.delta.Player; p != nil {
			dw.applyPosition(next, p)
			dw.applyHealth(next, p)
			dw.applyFoci(next, p)
			dw.applyInventory(next, p)
			dw.applyEquipment(next, p)
		}
		dw.applyNewRoom(next)
		dw.applyRoomNPCs(next)
		if dw.delta.InCombat != nil {
			if next.InCombat != *dw.delta.InCombat {
				dw.logger.Info("Combat state changed",
					"game_id", next.ID.String(),
					"in_combat", *dw.delta.InCombat)
			}
			next.InCombat = *dw.delta.InCombat
		}
	}

	next.AppendMemory(command, narrative)
	return next
}

func (dw *DeltaWorker) applyPosition(gs *GameState, p *PlayerUpdate) {
	if p.Position == nil {
		return
	}
	if gs.Player.Position != *p.Position {
		dw.logger.Info("Player moved",
			"game_id", gs.ID.String(),
			"from", gs.Player.Position.Key(),
			"to", p.Position.Key())
	}
	gs.Player.Position = *p.Position
}

func (dw *DeltaWorker) applyHealth(gs *GameState, p *PlayerUpdate) {
	if p.Health == nil {
		return
	}
	if p.Health.Value != nil {
		gs.Player.Health.Value = *p.Health.Value
	}
	if p.Health.Max != nil {
		gs.Player.Health.Max = *p.Health.Max
	}
}

func (dw *DeltaWorker) applyFoci(gs *GameState, p *PlayerUpdate) {
	for name, fu := range p.Foci {
		focus, ok := gs.Player.Foci[name]
		if !ok {
			dw.logger.Debug("Skipping update for focus the player does not have",
				"game_id", gs.ID.String(),
				"focus", name)
			continue
		}
		if fu.Anima == nil {
			continue
		}
		if fu.Anima.Value != nil {
			focus.Anima.Value = *fu.Anima.Value
		}
		if fu.Anima.Max != nil {
			focus.Anima.Max = *fu.Anima.Max
		}
		gs.Player.Foci[name] = focus
	}
}

// applyInventory appends additions without de-duplication, then removes by
// name ignoring case.
func (dw *DeltaWorker) applyInventory(gs *GameState, p *PlayerUpdate) {
	if len(p.InventoryAdd) > 0 {
		inv := make([]actor.Item, 0, len(gs.Player.Inventory)+len(p.InventoryAdd))
		inv = append(inv, gs.Player.Inventory...)
		for _, it := range p.InventoryAdd {
			if it.Name == "" {
				continue
			}
			inv = append(inv, it)
		}
		gs.Player.Inventory = inv
	}
	if len(p.InventoryRemove) > 0 {
		gs.Player.Inventory = actor.RemoveItems(gs.Player.Inventory, p.InventoryRemove)
	}
}

func (dw *DeltaWorker) applyEquipment(gs *GameState, p *PlayerUpdate) {
	if len(p.Equipment) == 0 {
		return
	}
	if gs.Player.Equipment == nil {
		gs.Player.Equipment = make(map[string]*actor.Item, len(p.Equipment))
	}
	for slot, it := range p.Equipment {
		if it == nil {
			gs.Player.Equipment[slot] = nil
			continue
		}
		cp := *it
		gs.Player.Equipment[slot] = &cp
	}
}

func (dw *DeltaWorker) applyNewRoom(gs *GameState) {
	nr := dw.delta.NewRoom
	if nr == nil || nr.Coordinates == "" {
		return
	}
	if gs.World == nil {
		gs.World = make(world.World)
	}
	if _, exists := gs.World[nr.Coordinates]; exists {
		dw.logger.Debug("Overwriting room",
			"game_id", gs.ID.String(),
			"coordinates", nr.Coordinates)
	}
	gs.World[nr.Coordinates] = nr.Room.Clone()
}

// applyRoomNPCs patches the room at the player's effective position, which
// already reflects any position change and new room from this update.
func (dw *DeltaWorker) applyRoomNPCs(gs *GameState) {
	wu := dw.delta.World
	if wu == nil {
		return
	}
	key := gs.Player.Position.Key()
	room, ok := gs.World[key]
	if !ok {
		dw.logger.Debug("No room at player position, skipping NPC updates",
			"game_id", gs.ID.String(),
			"coordinates", key)
		return
	}

	room.RemoveNPCs(wu.NPCRemove)

	for _, nu := range wu.NPCUpdate {
		i := room.FindNPC(nu.Name)
		if i < 0 {
			dw.logger.Debug("NPC not found for update",
				"game_id", gs.ID.String(),
				"npc", nu.Name,
				"coordinates", key)
			continue
		}
		room.NPCs[i].MergeAttributes(maps.Clone(nu.Attributes))
	}

	gs.World[key] = room
}
