package caseta

import (
	"context"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
	"github.com/nerrad567/gray-logic-caseta/internal/leap"
)

// Scene is a programmed scene of the bridge. Scenes carry no serial, so the
// unique ID combines the entry and scene IDs.
type Scene struct {
	scene   leap.Scene
	entryID string
	bridge  Smartbridge
}

func sceneEntities(entryID string, bridge Smartbridge) []hub.Entity {
	scenes := bridge.Scenes()
	out := make([]hub.Entity, 0, len(scenes))
	for _, s := range scenes {
		out = append(out, &Scene{scene: s, entryID: entryID, bridge: bridge})
	}
	return out
}

func (s *Scene) UniqueID() string           { return s.entryID + "_scene_" + s.scene.ID }
func (s *Scene) Name() string               { return s.scene.Name }
func (s *Scene) Platform() string           { return PlatformScene }
func (s *Scene) State() map[string]any      { return map[string]any{} }
func (s *Scene) Attributes() map[string]any { return map[string]any{"scene_id": s.scene.ID} }
func (s *Scene) ShouldPoll() bool           { return false }

// HandleCommand supports activate.
func (s *Scene) HandleCommand(ctx context.Context, cmd hub.Command) error {
	if cmd.Name != "activate" {
		return unknownCommand(cmd)
	}
	return s.bridge.ActivateScene(ctx, s.scene.ID)
}
