package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Method is the discriminant carried in the "method" field of every frame.
type Method string

const (
	MethodCreateScoreBoard Method = "createScoreBoard"
	MethodGetScoreBoard    Method = "getScoreBoard"
	MethodAddMember        Method = "addMember"
	MethodDeleteMember     Method = "deleteMember"
	MethodUpdateScore      Method = "updateScore"
	MethodJoinRoom         Method = "joinRoom"
	// MethodError tags failure frames sent back to a peer.
	MethodError Method = "error"
)

// ClientMessage is the closed set of requests a client may send.
type ClientMessage interface {
	Method() Method
	clientMessage()
}

type CreateScoreBoard struct{}

type GetScoreBoard struct {
	ID uuid.UUID `json:"id"`
}

type AddMember struct {
	Name string `json:"name"`
}

type DeleteMember struct {
	Name string `json:"name"`
}

type UpdateScore struct {
	Name  string `json:"name"`
	Score uint64 `json:"score"`
}

type JoinRoom struct {
	ID uuid.UUID `json:"id"`
}

func (CreateScoreBoard) Method() Method { return MethodCreateScoreBoard }
func (GetScoreBoard) Method() Method    { return MethodGetScoreBoard }
func (AddMember) Method() Method        { return MethodAddMember }
func (DeleteMember) Method() Method     { return MethodDeleteMember }
func (UpdateScore) Method() Method      { return MethodUpdateScore }
func (JoinRoom) Method() Method         { return MethodJoinRoom }

func (CreateScoreBoard) clientMessage() {}
func (GetScoreBoard) clientMessage()    {}
func (AddMember) clientMessage()        {}
func (DeleteMember) clientMessage()     {}
func (UpdateScore) clientMessage()      {}
func (JoinRoom) clientMessage()         {}

// ClientResponse is the closed set of frames the server sends back.
type ClientResponse interface {
	Method() Method
	clientResponse()
}

// BoardCreated answers CreateScoreBoard.
type BoardCreated struct {
	ID uuid.UUID `json:"id"`
}

// BoardFetched answers GetScoreBoard.
type BoardFetched struct {
	ScoreBoard ScoreBoard `json:"scoreboard"`
}

// RoomJoined answers JoinRoom by echoing the room id.
type RoomJoined struct {
	ID uuid.UUID `json:"id"`
}

// Failure carries a ClientError, or an opaque message for internal faults.
type Failure struct {
	Kind    ClientErrorKind `json:"kind,omitempty"`
	Message string          `json:"message"`
}

func (BoardCreated) Method() Method { return MethodCreateScoreBoard }
func (BoardFetched) Method() Method { return MethodGetScoreBoard }
func (RoomJoined) Method() Method   { return MethodJoinRoom }
func (Failure) Method() Method      { return MethodError }

func (BoardCreated) clientResponse() {}
func (BoardFetched) clientResponse() {}
func (RoomJoined) clientResponse()   {}
func (Failure) clientResponse()      {}

// InternalFailure is what a peer sees for transport and cache faults.
var InternalFailure = Failure{Message: "An unknown error occurred"}

// FailureFrom converts a dispatch error into the frame sent to the peer.
// Only ClientErrors keep their message; everything else is opaque.
func FailureFrom(err error) Failure {
	if ce, ok := AsClientError(err); ok {
		return Failure{Kind: ce.Kind, Message: ce.Message}
	}
	return InternalFailure
}

type frame struct {
	Method Method          `json:"method"`
	Body   json.RawMessage `json:"body,omitempty"`
}

func encodeFrame(m Method, body any) ([]byte, error) {
	f := frame{Method: m}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", m, err)
		}
		f.Body = raw
	}
	return json.Marshal(f)
}

// EncodeMessage serializes a request. CreateScoreBoard carries no body.
func EncodeMessage(m ClientMessage) ([]byte, error) {
	if _, ok := m.(CreateScoreBoard); ok {
		return encodeFrame(m.Method(), nil)
	}
	return encodeFrame(m.Method(), m)
}

// EncodeResponse serializes a response frame.
func EncodeResponse(r ClientResponse) ([]byte, error) {
	return encodeFrame(r.Method(), r)
}

// DecodeMessage parses one inbound text frame.
func DecodeMessage(data []byte) (ClientMessage, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	switch f.Method {
	case MethodCreateScoreBoard:
		return CreateScoreBoard{}, nil
	case MethodGetScoreBoard:
		var m GetScoreBoard
		if err := decodeBody(f, &m, "id"); err != nil {
			return nil, err
		}
		return m, nil
	case MethodAddMember:
		var m AddMember
		if err := decodeBody(f, &m, "name"); err != nil {
			return nil, err
		}
		return m, nil
	case MethodDeleteMember:
		var m DeleteMember
		if err := decodeBody(f, &m, "name"); err != nil {
			return nil, err
		}
		return m, nil
	case MethodUpdateScore:
		var m UpdateScore
		if err := decodeBody(f, &m, "name", "score"); err != nil {
			return nil, err
		}
		return m, nil
	case MethodJoinRoom:
		var m JoinRoom
		if err := decodeBody(f, &m, "id"); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, f.Method)
	}
}

// DecodeResponse parses one outbound frame; used by clients and tests.
func DecodeResponse(data []byte) (ClientResponse, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	switch f.Method {
	case MethodCreateScoreBoard:
		var r BoardCreated
		if err := decodeBody(f, &r, "id"); err != nil {
			return nil, err
		}
		return r, nil
	case MethodGetScoreBoard:
		var r BoardFetched
		if err := decodeBody(f, &r, "scoreboard"); err != nil {
			return nil, err
		}
		return r, nil
	case MethodJoinRoom:
		var r RoomJoined
		if err := decodeBody(f, &r, "id"); err != nil {
			return nil, err
		}
		return r, nil
	case MethodError:
		var r Failure
		if err := decodeBody(f, &r, "message"); err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, f.Method)
	}
}

// decodeBody unmarshals the payload into v after checking the required fields exist.
func decodeBody(f frame, v any, required ...string) error {
	body := bytes.TrimSpace(f.Body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return fmt.Errorf("decode %s: missing body", f.Method)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return fmt.Errorf("decode %s body: %w", f.Method, err)
	}
	for _, name := range required {
		if _, ok := fields[name]; !ok {
			return fmt.Errorf("decode %s body: missing field %q", f.Method, name)
		}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s body: %w", f.Method, err)
	}
	return nil
}
