package internal

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// TestSizeBytes tests the SizeBytes method
func TestSizeBytes(t *testing.T) {
	tests := []struct {
		name     string
		command  Command
		expected int
	}{
		{
			name:     "NextRange with token",
			command:  Command{Type: CommandTNextRange, Key: "users", Capacity: 32, Max: 64, Token: "17"},
			expected: headerSize + 5 + 2,
		},
		{
			name:     "ReturnRange without token",
			command:  Command{Type: CommandTReturnRange, Key: "users", Low: 35, High: 64},
			expected: headerSize + 5,
		},
		{
			name:     "Empty command",
			command:  Command{},
			expected: headerSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if size := tt.command.SizeBytes(); size != tt.expected {
				t.Errorf("SizeBytes() = %v, want %v", size, tt.expected)
			}
		})
	}
}

// TestSerializeDeserialize tests both Serialize and Deserialize methods
func TestSerializeDeserialize(t *testing.T) {
	tests := []struct {
		name    string
		command Command
	}{
		{
			name:    "NextRange",
			command: Command{Type: CommandTNextRange, Key: "users", Capacity: 32, Max: 64, At: 1714564800000000000, Token: "17"},
		},
		{
			name:    "Unconditional NextRange",
			command: Command{Type: CommandTNextRange, Key: "users", Capacity: 32},
		},
		{
			name:    "ReturnRange",
			command: Command{Type: CommandTReturnRange, Key: "users", Low: 35, High: 64},
		},
		{
			name:    "Put with document ID",
			command: Command{Type: CommandTPut, Key: "Raven/Hilo/products", Max: 128, Token: "3"},
		},
		{
			name:    "Negative and extreme values",
			command: Command{Type: CommandTNextRange, Key: "k", Capacity: math.MaxInt64, Max: -1, Low: math.MinInt64, High: -42, At: -7},
		},
		{
			name:    "Unicode key",
			command: Command{Type: CommandTPut, Key: "Raven/Hilo/你好世界", Max: 1},
		},
		{
			name:    "Empty key with token",
			command: Command{Type: CommandTPut, Token: "token"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.command.Serialize()

			var newCommand Command
			if err := newCommand.Deserialize(data); err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}

			if newCommand != tt.command {
				t.Errorf("Command mismatch: got %+v, want %+v", newCommand, tt.command)
			}

			if tt.command.SizeBytes() != len(data) {
				t.Errorf("SizeBytes() = %d, but serialized data length = %d",
					tt.command.SizeBytes(), len(data))
			}
		})
	}
}

// TestDeserializeErrors tests error cases in Deserialize
func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		expectedErr string
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectedErr: "data too short for command",
		},
		{
			name:        "Data too short (less than header)",
			data:        []byte{1, 2, 3, 4, 5},
			expectedErr: "data too short for command",
		},
		{
			name: "Invalid key length",
			data: func() []byte {
				data := make([]byte, headerSize)
				data[0] = byte(CommandTNextRange)
				binary.BigEndian.PutUint32(data[41:45], 1000)
				return data
			}(),
			expectedErr: "data too short for key of length 1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd Command
			err := cmd.Deserialize(tt.data)

			if err == nil {
				t.Fatalf("Expected error but got nil")
			}
			if err.Error() != tt.expectedErr {
				t.Errorf("Expected error %q, got %q", tt.expectedErr, err.Error())
			}
		})
	}
}

// TestBinaryFormat tests the exact binary format of serialized commands
func TestBinaryFormat(t *testing.T) {
	cmd := Command{
		Type:     CommandTNextRange,
		Key:      "users",
		Capacity: 32,
		Max:      64,
		Low:      0,
		High:     0,
		At:       99,
		Token:    "abc",
	}

	expected := make([]byte, cmd.SizeBytes())
	expected[0] = byte(CommandTNextRange)
	binary.BigEndian.PutUint64(expected[1:9], 32)
	binary.BigEndian.PutUint64(expected[9:17], 64)
	binary.BigEndian.PutUint64(expected[33:41], 99)
	binary.BigEndian.PutUint32(expected[41:45], 5)
	copy(expected[45:50], "users")
	copy(expected[50:], "abc")

	if serialized := cmd.Serialize(); !bytes.Equal(serialized, expected) {
		t.Errorf("Binary format does not match:\nGot:      %v\nExpected: %v", serialized, expected)
	}
}

func TestCommandTypeString(t *testing.T) {
	if CommandTReturnRange.String() != "ReturnRange" {
		t.Errorf("unexpected name %q", CommandTReturnRange.String())
	}
	if CommandType(42).String() != "Unknown(42)" {
		t.Errorf("unexpected name %q", CommandType(42).String())
	}
}
