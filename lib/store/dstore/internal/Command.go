package internal

import (
	"encoding/binary"
	"fmt"
)

// CommandType defines the possible operations for the state machine.
type CommandType uint8

const (
	CommandTNextRange   CommandType = iota // Grant the next range of a collection tag.
	CommandTReturnRange                    // Return the unused tail of a range.
	CommandTPut                            // Overwrite the max of a counter document.
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTNextRange:
		return "NextRange"
	case CommandTReturnRange:
		return "ReturnRange"
	case CommandTPut:
		return "Put"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// headerSize is Type + Capacity + Max + Low + High + At + KeyLen
const headerSize = 1 + 8 + 8 + 8 + 8 + 8 + 4

// Command represents a command to be executed by the state machine (a single entry in the raft log)
type Command struct {
	Type     CommandType
	Key      string // collection tag, or the document ID for CommandTPut
	Capacity int64  // NextRange
	Max      int64  // NextRange: last max (floor), Put: new max
	Low      int64  // ReturnRange
	High     int64  // ReturnRange
	At       int64  // unix nanoseconds, NextRange: set by the proposing node, ReturnRange: restored LastRangeAt (0 keeps it)
	Token    string // NextRange: last token, Put: expected token
}

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	return headerSize + len(command.Key) + len(command.Token)
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 8 bytes each for capacity, max, low, high and at (big endian, two's complement),
// 4 bytes for key length (big endian),
// N bytes for key data,
// M bytes for the token (optional)
func (command *Command) Serialize() []byte {
	result := make([]byte, command.SizeBytes())

	result[0] = byte(command.Type)
	binary.BigEndian.PutUint64(result[1:9], uint64(command.Capacity))
	binary.BigEndian.PutUint64(result[9:17], uint64(command.Max))
	binary.BigEndian.PutUint64(result[17:25], uint64(command.Low))
	binary.BigEndian.PutUint64(result[25:33], uint64(command.High))
	binary.BigEndian.PutUint64(result[33:41], uint64(command.At))
	binary.BigEndian.PutUint32(result[41:45], uint32(len(command.Key)))

	copy(result[headerSize:], command.Key)
	copy(result[headerSize+len(command.Key):], command.Token)

	return result
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for command")
	}

	command.Type = CommandType(data[0])
	command.Capacity = int64(binary.BigEndian.Uint64(data[1:9]))
	command.Max = int64(binary.BigEndian.Uint64(data[9:17]))
	command.Low = int64(binary.BigEndian.Uint64(data[17:25]))
	command.High = int64(binary.BigEndian.Uint64(data[25:33]))
	command.At = int64(binary.BigEndian.Uint64(data[33:41]))
	keyLen := binary.BigEndian.Uint32(data[41:45])

	if len(data) < headerSize+int(keyLen) {
		return fmt.Errorf("data too short for key of length %d", keyLen)
	}

	command.Key = string(data[headerSize : headerSize+int(keyLen)])
	command.Token = string(data[headerSize+int(keyLen):])

	return nil
}
