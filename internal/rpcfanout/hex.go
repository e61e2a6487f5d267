package rpcfanout

import (
	"encoding/json"
	"strconv"
	"strings"
)

// hexUint decodes a JSON-RPC quantity ("0x..." string) into a uint64.
type hexUint uint64

func (h *hexUint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		s = "0"
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return err
	}
	*h = hexUint(v)
	return nil
}
