package recorder

import (
	"fmt"
	"math"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the recording messages:
//
//	message Vector { double x = 1; double y = 2; double z = 3; }
//	message Agent  { uint32 id = 1; Vector position = 2; Vector velocity = 3; }
//	message Header { string run_id = 1; uint32 version = 2; Vector bounds = 3;
//	                 uint32 agents = 4; bytes config_json = 5; }
//	message Frame  { uint64 tick = 1; repeated Agent agents = 2; }
const (
	vectorX protowire.Number = 1
	vectorY protowire.Number = 2
	vectorZ protowire.Number = 3

	agentID       protowire.Number = 1
	agentPosition protowire.Number = 2
	agentVelocity protowire.Number = 3

	headerRunID   protowire.Number = 1
	headerVersion protowire.Number = 2
	headerBounds  protowire.Number = 3
	headerAgents  protowire.Number = 4
	headerConfig  protowire.Number = 5

	frameTick   protowire.Number = 1
	frameAgents protowire.Number = 2
)

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendVector(b []byte, num protowire.Number, v geometry.Vector3D) []byte {
	var msg [3 * (1 + 8)]byte
	body := appendDouble(msg[:0], vectorX, v.X)
	body = appendDouble(body, vectorY, v.Y)
	body = appendDouble(body, vectorZ, v.Z)
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

func appendAgent(b, scratch []byte, num protowire.Number, a flock.Agent) ([]byte, []byte) {
	scratch = protowire.AppendTag(scratch[:0], agentID, protowire.VarintType)
	scratch = protowire.AppendVarint(scratch, uint64(a.ID))
	scratch = appendVector(scratch, agentPosition, a.Position)
	scratch = appendVector(scratch, agentVelocity, a.Velocity)
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, scratch), scratch
}

// fieldFunc handles one field of a message; it returns the bytes consumed
// from b, or a negative protowire error code.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) int

// walk iterates the fields of a message, skipping those fn leaves alone by
// returning 0.
func walk(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m := fn(num, typ, b)
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

func consumeDouble(typ protowire.Type, b []byte, dst *float64) int {
	if typ != protowire.Fixed64Type {
		return 0
	}
	v, n := protowire.ConsumeFixed64(b)
	if n >= 0 {
		*dst = math.Float64frombits(v)
	}
	return n
}

func consumeVector(typ protowire.Type, b []byte, dst *geometry.Vector3D) int {
	if typ != protowire.BytesType {
		return 0
	}
	body, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}
	err := walk(body, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case vectorX:
			return consumeDouble(typ, b, &dst.X)
		case vectorY:
			return consumeDouble(typ, b, &dst.Y)
		case vectorZ:
			return consumeDouble(typ, b, &dst.Z)
		}
		return 0
	})
	if err != nil {
		return -1
	}
	return n
}

func consumeUint(typ protowire.Type, b []byte, dst *uint64) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

func decodeAgent(body []byte) (flock.Agent, error) {
	var a flock.Agent
	err := walk(body, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case agentID:
			var id uint64
			n := consumeUint(typ, b, &id)
			a.ID = int(id)
			return n
		case agentPosition:
			return consumeVector(typ, b, &a.Position)
		case agentVelocity:
			return consumeVector(typ, b, &a.Velocity)
		}
		return 0
	})
	return a, err
}
