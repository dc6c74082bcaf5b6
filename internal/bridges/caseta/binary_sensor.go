package caseta

import (
	"context"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
	"github.com/nerrad567/gray-logic-caseta/internal/leap"
)

// OccupancySensor reports whether an occupancy group is occupied.
type OccupancySensor struct {
	group   leap.OccupancyGroup
	entryID string
	bridge  Smartbridge
}

func occupancyEntities(entryID string, bridge Smartbridge) []hub.Entity {
	groups := bridge.OccupancyGroups()
	out := make([]hub.Entity, 0, len(groups))
	for _, g := range groups {
		out = append(out, &OccupancySensor{group: g, entryID: entryID, bridge: bridge})
	}
	return out
}

func (o *OccupancySensor) UniqueID() string { return o.entryID + "_occupancygroup_" + o.group.ID }
func (o *OccupancySensor) Name() string     { return o.group.Name }
func (o *OccupancySensor) Platform() string { return PlatformBinarySensor }
func (o *OccupancySensor) ShouldPoll() bool { return false }

// State returns occupied.
func (o *OccupancySensor) State() map[string]any {
	status := o.group.Status
	if latest, ok := o.bridge.OccupancyGroup(o.group.ID); ok {
		status = latest.Status
	}
	return map[string]any{"occupied": status == leap.Occupied}
}

// Attributes returns the device class and group ID.
func (o *OccupancySensor) Attributes() map[string]any {
	return map[string]any{
		"device_class":       "occupancy",
		"occupancy_group_id": o.group.ID,
	}
}

// AddedToHub subscribes refresh to status changes of the group.
func (o *OccupancySensor) AddedToHub(_ context.Context, refresh func()) {
	o.bridge.AddOccupancySubscriber(o.group.ID, refresh)
}
