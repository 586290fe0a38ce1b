package live

import (
	"encoding/json"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/group"
)

// MessageType represents the type of a binary live protocol frame
type MessageType uint8

const (
	// Frame types
	FrameGuides  MessageType = 0x00
	FramePointer MessageType = 0x01
	FrameControl MessageType = 0x02
)

// PointerType is the phase of a binary pointer frame
type PointerType uint8

const (
	PointerDown PointerType = 0x01
	PointerMove PointerType = 0x02
	PointerUp   PointerType = 0x03
)

// Pointer is a pointer event in screen pixels. ID is only meaningful for
// PointerDown; an empty ID asks the server to hit-test.
type Pointer struct {
	Type PointerType
	X    float64
	Y    float64
	ID   string
}

// Client message types
const (
	MsgPointerDown = "pointerdown"
	MsgPointerMove = "pointermove"
	MsgPointerUp   = "pointerup"
	MsgViewport    = "viewport"
	MsgUndo        = "undo"
	MsgRedo        = "redo"
	MsgGroup       = "group"
	MsgUngroup     = "ungroup"
	MsgAdd         = "add"
	MsgDelete      = "delete"
	MsgResize      = "resize"
	MsgDevice      = "device"
	MsgLoad        = "load"
	MsgSave        = "save"
)

// Server message types
const (
	MsgState = "state"
	MsgZoom  = "zoom"
	MsgBody  = "body"
	MsgError = "error"
)

// ClientMessage is a JSON text frame sent by the browser host
type ClientMessage struct {
	Type string `json:"type"`

	X  float64 `json:"x,omitempty"`
	Y  float64 `json:"y,omitempty"`
	ID string  `json:"id,omitempty"`

	IDs  []string `json:"ids,omitempty"`
	Name string   `json:"name,omitempty"`

	ElementType canvas.Type `json:"elementType,omitempty"`
	Width       float64     `json:"width,omitempty"`
	Height      float64     `json:"height,omitempty"`

	// viewport
	Container *canvas.Rect `json:"container,omitempty"`
	// Transform is the container's CSS transform, including an applied
	// auto-fit zoom. Omitted keeps the last reported one.
	Transform string       `json:"transform,omitempty"`
	Viewport  *canvas.Size `json:"viewport,omitempty"`

	Device   string          `json:"device,omitempty"`
	Elements json.RawMessage `json:"elements,omitempty"`
}

// StateMessage carries the canonical collection after a change
type StateMessage struct {
	Type     string          `json:"type"`
	Elements canvas.Elements `json:"elements"`
	Layers   []group.Layer   `json:"layers"`
	Device   string          `json:"device"`
	Canvas   canvas.Size     `json:"canvas"`
	CanUndo  bool            `json:"canUndo"`
	CanRedo  bool            `json:"canRedo"`
}

// ZoomMessage asks the host to apply an auto-fit zoom. The host applies it
// through the container transform it reports back in viewport messages.
type ZoomMessage struct {
	Type string  `json:"type"`
	Zoom float64 `json:"zoom"`
}

// BodyMessage mirrors the page-level scroll lock on the host
type BodyMessage struct {
	Type         string  `json:"type"`
	ScrollLocked *bool   `json:"scrollLocked,omitempty"`
	TouchAction  *string `json:"touchAction,omitempty"`
}

// ErrorMessage reports a rejected client message
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
