package main

import (
	"encoding/json"

	"github.com/tkovis/spatial-grid/grid"
)

// Client -> Server message types
const (
	MsgCreate = "create" // create world
	MsgList   = "list"   // list worlds
	MsgJoin   = "join"   // join or resume
	MsgMove   = "move"   // steer avatar toward a point
	MsgArea   = "area"   // resize area of interest
	MsgLeave  = "leave"
)

// Server -> Client message types
const (
	MsgCreated = "created"
	MsgWorlds  = "worlds"
	MsgWelcome = "welcome"
	MsgError   = "error"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; D stays raw until the type is known
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// CreateMsg asks for a new world
type CreateMsg struct {
	Name      string `json:"name"`
	Wanderers *int   `json:"wanderers,omitempty"`
}

// JoinMsg enters a world. A valid Token resumes the avatar it names instead.
type JoinMsg struct {
	Name  string `json:"name"`
	WID   string `json:"wid"`
	Token string `json:"token,omitempty"`
}

// MoveMsg sets the point the avatar steers toward (world coords)
type MoveMsg struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AreaMsg sets the size of the area whose occupants are reported
type AreaMsg struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// WelcomeMsg is sent once an avatar is placed in a world
type WelcomeMsg struct {
	WID     string          `json:"wid"`
	EID     grid.EntityID   `json:"eid"`
	Token   string          `json:"token"`
	Resumed bool            `json:"resumed,omitempty"`
	Bounds  grid.Bounds     `json:"bounds"`
	Dims    grid.Dimensions `json:"dimensions"`
}

// WorldInfo is used in the world list
type WorldInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Avatars  int    `json:"avatars"`
	Entities int    `json:"entities"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// Kinds of nearby entities
const (
	KindWanderer = 0
	KindAvatar   = 1
)

// NearbyEntity is one occupant of a client's area of interest
type NearbyEntity struct {
	ID   grid.EntityID `json:"id" msgpack:"id"`
	X    float64       `json:"x" msgpack:"x"`
	Y    float64       `json:"y" msgpack:"y"`
	Kind int           `json:"k" msgpack:"k"`
	Name string        `json:"n,omitempty" msgpack:"n,omitempty"`
}

// NearbyState is broadcast to each client as a msgpack binary frame
type NearbyState struct {
	Tick   uint64         `json:"tick" msgpack:"tick"`
	Self   grid.EntityID  `json:"self" msgpack:"self"`
	X      float64        `json:"x" msgpack:"x"`
	Y      float64        `json:"y" msgpack:"y"`
	Nearby []NearbyEntity `json:"nearby" msgpack:"nearby"`
}
