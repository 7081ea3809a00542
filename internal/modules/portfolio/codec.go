package portfolio

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotFormat selects the wire encoding of an exported snapshot.
type SnapshotFormat string

const (
	FormatMsgpack SnapshotFormat = "msgpack"
	FormatJSON    SnapshotFormat = "json"
)

// snapshotVersion is bumped whenever the envelope changes incompatibly.
const snapshotVersion = 1

type snapshotEnvelope struct {
	Version  int             `json:"version"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

// EncodeSnapshot serializes a snapshot. Msgpack reuses the json tags so both formats
// carry the same field names.
func EncodeSnapshot(snapshot domain.Snapshot, format SnapshotFormat) ([]byte, error) {
	env := snapshotEnvelope{Version: snapshotVersion, Snapshot: snapshot}

	switch format {
	case FormatMsgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(env); err != nil {
			return nil, fmt.Errorf("failed to encode snapshot as msgpack: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON:
		data, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode snapshot as json: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unknown snapshot format %q", format)
}

// DecodeSnapshot parses a snapshot produced by EncodeSnapshot. A snapshot without
// settlement settings gets the default settlement config.
func DecodeSnapshot(data []byte, format SnapshotFormat) (domain.Snapshot, error) {
	env := snapshotEnvelope{Snapshot: domain.Snapshot{Settlement: domain.DefaultSettlementConfig()}}

	switch format {
	case FormatMsgpack:
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		if err := dec.Decode(&env); err != nil {
			return domain.Snapshot{}, fmt.Errorf("failed to decode msgpack snapshot: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &env); err != nil {
			return domain.Snapshot{}, fmt.Errorf("failed to decode json snapshot: %w", err)
		}
	default:
		return domain.Snapshot{}, fmt.Errorf("unknown snapshot format %q", format)
	}

	if env.Version != snapshotVersion {
		return domain.Snapshot{}, fmt.Errorf("unsupported snapshot version %d", env.Version)
	}
	return env.Snapshot, nil
}
