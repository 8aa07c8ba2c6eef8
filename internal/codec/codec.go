// Package codec implements the line-oriented entry text format: parsing
// match/priority/action tokens into a match.Entry and emitting the
// inverse. Grammar:
//
//	entry := [ "match" field+ ] [ "priority" U32 ] "action" NAME ( ARG_NAME VALUE )*
//	field := HEX64 [ "/" HEX64 ]         ; value optionally followed by mask
//	VALUE := ("H(" | "N(") HEX64 ")"     ; H = host byte order, N = network
//
// "#", ";" and "//" introduce end-of-line comments; a blank or
// wholly-comment line parses with no entry and blank=true.
package codec

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/behrlich/go-swx/match"
)

var (
	ErrMalformedEntry = errors.New("codec: malformed entry line")
	ErrUnknownAction  = errors.New("codec: unknown action name")
)

// ActionArg describes one named argument of an action, in declaration
// order, sized in bytes.
type ActionArg struct {
	Name string
	Size int
}

// ActionDef describes one action a table accepts, for codec purposes:
// its name, its numeric ID, and its argument layout.
type ActionDef struct {
	Name string
	ID   int
	Args []ActionArg
}

// Schema carries the table metadata the codec needs to parse and emit
// entries: the match fields (for key/mask layout) and the allowed
// actions (for argument layout).
type Schema struct {
	Fields  []match.Field
	Actions []ActionDef
}

func (s Schema) findActionByName(name string) (ActionDef, bool) {
	for _, a := range s.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return ActionDef{}, false
}

func (s Schema) findActionByID(id int) (ActionDef, bool) {
	for _, a := range s.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return ActionDef{}, false
}

func argTotalSize(args []ActionArg) int {
	n := 0
	for _, a := range args {
		n += a.Size
	}
	return n
}

func stripComment(line string) string {
	cut := len(line)
	for _, marker := range []string{"#", ";", "//"} {
		if i := strings.Index(line, marker); i >= 0 && i < cut {
			cut = i
		}
	}
	return line[:cut]
}

// Parse reads one line against schema. blank is true and entry is nil for a
// blank or wholly-comment line; otherwise entry is non-nil on success.
func Parse(line string, schema Schema) (entry *match.Entry, blank bool, err error) {
	body := strings.TrimSpace(stripComment(line))
	if body == "" {
		return nil, true, nil
	}
	tokens := strings.Fields(body)
	idx := 0

	var key, keyMask []byte
	if len(schema.Fields) > 0 {
		if idx >= len(tokens) || tokens[idx] != "match" {
			return nil, false, ErrMalformedEntry
		}
		idx++
		offset0, keySize := match.KeyExtent(schema.Fields)
		key = make([]byte, keySize)
		mask := make([]byte, keySize)
		copy(mask, match.KeyMask0(schema.Fields))
		haveMask := false

		for _, f := range schema.Fields {
			if idx >= len(tokens) {
				return nil, false, ErrMalformedEntry
			}
			tok := tokens[idx]
			idx++

			valPart, maskPart, hasMask := strings.Cut(tok, "/")
			valBytes, verr := parseHexBytes(valPart, f.Size)
			if verr != nil {
				return nil, false, ErrMalformedEntry
			}
			off := f.Offset - offset0
			copy(key[off:off+f.Size], valBytes)

			if hasMask {
				maskBytes, merr := parseHexBytes(maskPart, f.Size)
				if merr != nil {
					return nil, false, ErrMalformedEntry
				}
				copy(mask[off:off+f.Size], maskBytes)
				haveMask = true
			}
		}
		if haveMask {
			keyMask = mask
		}
	} else if idx < len(tokens) && tokens[idx] == "match" {
		return nil, false, ErrMalformedEntry
	}

	var priority uint32
	if idx < len(tokens) && tokens[idx] == "priority" {
		idx++
		if idx >= len(tokens) {
			return nil, false, ErrMalformedEntry
		}
		p, perr := strconv.ParseUint(tokens[idx], 0, 32)
		if perr != nil {
			return nil, false, ErrMalformedEntry
		}
		priority = uint32(p)
		idx++
	}

	if idx >= len(tokens) || tokens[idx] != "action" {
		return nil, false, ErrMalformedEntry
	}
	idx++
	if idx >= len(tokens) {
		return nil, false, ErrMalformedEntry
	}
	actionName := tokens[idx]
	idx++

	def, ok := schema.findActionByName(actionName)
	if !ok {
		return nil, false, ErrUnknownAction
	}

	actionData := make([]byte, argTotalSize(def.Args))
	off := 0
	for _, arg := range def.Args {
		if idx+1 >= len(tokens) {
			return nil, false, ErrMalformedEntry
		}
		name := tokens[idx]
		idx++
		if name != arg.Name {
			return nil, false, ErrMalformedEntry
		}
		valTok := tokens[idx]
		idx++
		encoded, verr := parseActionValue(valTok, arg.Size)
		if verr != nil {
			return nil, false, ErrMalformedEntry
		}
		copy(actionData[off:off+arg.Size], encoded)
		off += arg.Size
	}
	if idx != len(tokens) {
		return nil, false, ErrMalformedEntry
	}

	e := &match.Entry{
		Key:         key,
		KeyMask:     keyMask,
		KeyPriority: priority,
		ActionID:    def.ID,
		ActionData:  actionData,
	}
	if key != nil {
		e.KeySignature = match.Signature(key)
	}
	return e, false, nil
}

// Emit renders e against schema in the canonical lowercase, unwrapped
// format: match key[/mask], priority, action name, then each argument's
// raw bytes as lowercase hex.
func Emit(e *match.Entry, schema Schema) string {
	var b strings.Builder

	if len(schema.Fields) > 0 {
		offset0, _ := match.KeyExtent(schema.Fields)
		b.WriteString("match")
		for _, f := range schema.Fields {
			off := f.Offset - offset0
			b.WriteByte(' ')
			b.WriteString("0x")
			b.WriteString(hex.EncodeToString(e.Key[off : off+f.Size]))
			if e.KeyMask != nil {
				b.WriteByte('/')
				b.WriteString("0x")
				b.WriteString(hex.EncodeToString(e.KeyMask[off : off+f.Size]))
			}
		}
		b.WriteByte(' ')
	}

	b.WriteString("priority ")
	b.WriteString(strconv.FormatUint(uint64(e.KeyPriority), 10))
	b.WriteString(" action ")

	def, ok := schema.findActionByID(e.ActionID)
	if !ok {
		b.WriteString("unknown")
		return b.String()
	}
	b.WriteString(def.Name)

	off := 0
	for _, arg := range def.Args {
		b.WriteByte(' ')
		b.WriteString(arg.Name)
		b.WriteByte(' ')
		b.WriteString(hex.EncodeToString(e.ActionData[off : off+arg.Size]))
		off += arg.Size
	}

	return b.String()
}

// parseHexBytes decodes s (an optionally "0x"-prefixed hex literal,
// interpreted as a fixed-width big-endian quantity) into exactly size
// bytes, left-padding with zero nibbles as needed.
func parseHexBytes(s string, size int) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) > size*2 {
		return nil, ErrMalformedEntry
	}
	if len(s)%2 != 0 || len(s) < size*2 {
		s = strings.Repeat("0", size*2-len(s)) + s
	}
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrMalformedEntry
	}
	return out, nil
}

// parseActionValue decodes one action VALUE token. H(..)/N(..) wrap a
// numeric literal converted per the host/network endianness rule
// (spec design note: zero-extend to 64 bits, shift left by 64-n_bits,
// byte-swap to big-endian, copy the low n_bits/8 bytes — equivalent to
// taking the low `size` bytes of val in the requested byte order).
// An unwrapped token is treated as a literal big-endian byte string,
// matching Emit's unwrapped output.
func parseActionValue(tok string, size int) ([]byte, error) {
	switch {
	case strings.HasPrefix(tok, "H(") && strings.HasSuffix(tok, ")"):
		val, err := parseHexUint64(tok[2 : len(tok)-1])
		if err != nil {
			return nil, err
		}
		return encodeHost(val, size), nil
	case strings.HasPrefix(tok, "N(") && strings.HasSuffix(tok, ")"):
		val, err := parseHexUint64(tok[2 : len(tok)-1])
		if err != nil {
			return nil, err
		}
		return encodeNetwork(val, size), nil
	default:
		return parseHexBytes(tok, size)
	}
}

func parseHexUint64(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

func encodeHost(val uint64, size int) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, val)
	return buf[:size]
}

func encodeNetwork(val uint64, size int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, val)
	return buf[8-size:]
}
