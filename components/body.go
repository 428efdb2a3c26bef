package components

import "github.com/pthm-cable/deadend/geom"

// Body holds the entity's shape, including its current center.
type Body struct {
	Shape geom.Shape
}

// Motion holds movement properties of an entity.
type Motion struct {
	Speed   float64
	LastDir geom.Direction // diagnostics only
}

// Move displaces body by dir scaled by the entity's speed and records dir.
// No boundary checks happen here; clamping is a separate step.
func Move(body *Body, motion *Motion, dir geom.Direction) {
	motion.LastDir = dir
	if dir == geom.None || motion.Speed == 0 {
		return
	}
	body.Shape = geom.Moved(body.Shape, dir.Vector().Scale(motion.Speed))
}
