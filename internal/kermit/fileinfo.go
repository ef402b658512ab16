package kermit

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FileInfo describes a file being transferred, parsed from or
// marshaled into a Type-F header packet.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
	Mode    uint32
}

// marshalFileInfo encodes a file header's data field: name, a space,
// then size/modtime/mode fields, mirroring the attribute-packet
// layout classic Kermit implementations use.
func marshalFileInfo(info FileInfo) []byte {
	name := SanitizeFilename(info.Name)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte(' ')
	fmt.Fprintf(&b, "%d", info.Size)
	b.WriteByte(' ')
	if !info.ModTime.IsZero() {
		fmt.Fprintf(&b, "%o", info.ModTime.Unix())
	} else {
		b.WriteString("0")
	}
	b.WriteByte(' ')
	fmt.Fprintf(&b, "%o", info.Mode)
	return []byte(b.String())
}

// parseFileInfo is the inverse of marshalFileInfo. Missing trailing
// fields default to zero values rather than erroring, since peers
// vary in how much metadata they send.
func parseFileInfo(data []byte) (FileInfo, error) {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return FileInfo{}, fmt.Errorf("kermit: file header has no filename")
	}

	info := FileInfo{Name: SanitizeFilename(fields[0])}

	if len(fields) > 1 {
		if size, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
			info.Size = size
		}
	}
	if len(fields) > 2 {
		if mt, err := strconv.ParseInt(fields[2], 8, 64); err == nil && mt > 0 {
			info.ModTime = time.Unix(mt, 0)
		}
	}
	if len(fields) > 3 {
		if mode, err := strconv.ParseUint(fields[3], 8, 32); err == nil {
			info.Mode = uint32(mode)
		}
	}

	return info, nil
}

// SanitizeFilename strips directory components from a peer-supplied
// name so a receive can never escape the current directory (§4.H
// openf "mode=2 must not escape the current directory").
func SanitizeFilename(name string) string {
	return filepath.Base(name)
}
