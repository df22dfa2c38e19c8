package input

import (
	"sync"

	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/go-vgo/robotgo"
)

// Robot sends real input through robotgo. It implements macro.Input.
type Robot struct {
	log *logger.AppLogger

	// Display Offset
	mu             sync.Mutex
	displayOffsetX int
	displayOffsetY int
	displayWidth   int
	displayHeight  int
}

// NewRobot creates a robot targeting the given display
func NewRobot(display int, log *logger.AppLogger) *Robot {
	if log == nil {
		log = logger.Nop()
	}
	r := &Robot{log: log}
	r.SetDisplayID(display)
	return r
}

// SetDisplayID aims absolute clicks at a display
func (r *Robot) SetDisplayID(id int) {
	x, y, w, h := robotgo.GetDisplayBounds(id)
	r.mu.Lock()
	r.displayOffsetX, r.displayOffsetY = x, y
	r.displayWidth, r.displayHeight = w, h
	r.mu.Unlock()
	r.log.Debug("Display %d Offset set to (%d, %d), size %dx%d", id, x, y, w, h)
}

// MoveRelative moves the cursor by a pixel offset
func (r *Robot) MoveRelative(dx, dy int) {
	if dx == 0 && dy == 0 {
		return
	}
	robotgo.MoveRelative(dx, dy)
}

// MouseDown presses a mouse button
func (r *Robot) MouseDown(button string) {
	if err := robotgo.Toggle(buttonName(button)); err != nil {
		r.log.Warn("Mouse down %s failed: %v", button, err)
	}
}

// MouseUp releases a mouse button
func (r *Robot) MouseUp(button string) {
	if err := robotgo.Toggle(buttonName(button), "up"); err != nil {
		r.log.Warn("Mouse up %s failed: %v", button, err)
	}
}

// KeyDown presses a key
func (r *Robot) KeyDown(key string) {
	if err := robotgo.KeyToggle(KeyName(key), "down"); err != nil {
		r.log.Warn("Key down %s failed: %v", key, err)
	}
}

// KeyUp releases a key
func (r *Robot) KeyUp(key string) {
	if err := robotgo.KeyToggle(KeyName(key), "up"); err != nil {
		r.log.Warn("Key up %s failed: %v", key, err)
	}
}

// KeyTap presses and releases a key
func (r *Robot) KeyTap(key string) {
	if err := robotgo.KeyTap(KeyName(key)); err != nil {
		r.log.Warn("Key tap %s failed: %v", key, err)
	}
}

// ClickAt left-clicks at a point given as fractions of the display size
func (r *Robot) ClickAt(fx, fy float64) {
	r.mu.Lock()
	x := r.displayOffsetX + int(fx*float64(r.displayWidth))
	y := r.displayOffsetY + int(fy*float64(r.displayHeight))
	r.mu.Unlock()

	robotgo.Move(x, y)
	robotgo.MilliSleep(50)
	robotgo.Click("left")
}

// buttonName maps recorded button names ("Button.left") to robotgo's
func buttonName(button string) string {
	switch button {
	case "", "Button.left":
		return "left"
	case "Button.right":
		return "right"
	case "Button.middle", "middle":
		return "center"
	}
	return button
}
