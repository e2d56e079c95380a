package dcc

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Request types.
const (
	TypeSend   = "SEND"
	TypeChat   = "CHAT"
	TypeResume = "RESUME"
	TypeAccept = "ACCEPT"
)

// ErrUnsupportedType is returned by ParseRequest for DCC types other than
// SEND, CHAT, RESUME and ACCEPT.
var ErrUnsupportedType = errors.New("dcc: unsupported request type")

// ErrMalformedRequest is returned by ParseRequest when an argument is missing
// or has the wrong form.
var ErrMalformedRequest = errors.New("dcc: malformed request")

// A Request is a pending DCC endpoint parsed from the text of a CTCP DCC
// message. It is a plain value, nothing about it is kept once the event
// carrying it has been handled.
type Request struct {
	Type     string
	Filename string
	Addr     netip.Addr
	Port     int
	Size     int64
	Position int64
	Token    string
}

// Passive returns true for reverse DCC, where the sender asks the receiver to
// open the port. These have port 0 and a token.
func (request *Request) Passive() bool {
	return request.Port == 0 && request.Token != ""
}

// String formats the request as the text of a CTCP DCC message, without the
// leading "DCC ".
func (request *Request) String() string {
	tokens := make([]string, 0, 6)
	tokens = append(tokens, request.Type)

	switch request.Type {
	case TypeSend:
		tokens = append(tokens, quoteFilename(request.Filename), FormatAddress(request.Addr), strconv.Itoa(request.Port))
		if request.Size > 0 || request.Token != "" {
			tokens = append(tokens, strconv.FormatInt(request.Size, 10))
		}
	case TypeChat:
		tokens = append(tokens, "chat", FormatAddress(request.Addr), strconv.Itoa(request.Port))
	case TypeResume, TypeAccept:
		tokens = append(tokens, quoteFilename(request.Filename), strconv.Itoa(request.Port), strconv.FormatInt(request.Position, 10))
	}

	if request.Token != "" {
		tokens = append(tokens, request.Token)
	}

	return strings.Join(tokens, " ")
}

// ParseRequest parses the text of a CTCP DCC message, e.g.
// `SEND "some file.txt" 2130706433 5000 1024`. The leading "DCC" is optional.
func ParseRequest(text string) (*Request, error) {
	tokens := splitTokens(text)
	if len(tokens) > 0 && strings.EqualFold(tokens[0], "DCC") {
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return nil, ErrMalformedRequest
	}

	request := &Request{Type: strings.ToUpper(tokens[0])}
	args := tokens[1:]

	switch request.Type {
	case TypeSend, TypeChat:
		if len(args) < 3 {
			return nil, ErrMalformedRequest
		}

		if request.Type == TypeSend {
			request.Filename = args[0]
		}

		addr, err := ParseAddress(args[1])
		if err != nil {
			return nil, err
		}
		request.Addr = addr

		request.Port, err = parsePort(args[2])
		if err != nil {
			return nil, err
		}

		rest := args[3:]
		if request.Type == TypeSend && len(rest) > 0 {
			request.Size, err = strconv.ParseInt(rest[0], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: size %q", ErrMalformedRequest, rest[0])
			}
			rest = rest[1:]
		}
		if len(rest) > 0 {
			request.Token = rest[0]
		}
	case TypeResume, TypeAccept:
		if len(args) < 3 {
			return nil, ErrMalformedRequest
		}

		request.Filename = args[0]

		var err error
		request.Port, err = parsePort(args[1])
		if err != nil {
			return nil, err
		}

		request.Position, err = strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: position %q", ErrMalformedRequest, args[2])
		}

		if len(args) > 3 {
			request.Token = args[3]
		}
	default:
		return nil, ErrUnsupportedType
	}

	return request, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < 0 || port > 65535 {
		return 0, fmt.Errorf("%w: port %q", ErrMalformedRequest, s)
	}

	return port, nil
}

func quoteFilename(filename string) string {
	if strings.ContainsAny(filename, " \t") {
		return `"` + filename + `"`
	}

	return filename
}

// splitTokens splits on spaces, keeping double-quoted runs together.
func splitTokens(text string) []string {
	tokens := make([]string, 0, 6)
	current := strings.Builder{}
	quoted := false
	hasToken := false

	for _, ch := range text {
		switch {
		case ch == '"':
			quoted = !quoted
			hasToken = true
		case ch == ' ' && !quoted:
			if hasToken {
				tokens = append(tokens, current.String())
				current.Reset()
				hasToken = false
			}
		default:
			current.WriteRune(ch)
			hasToken = true
		}
	}

	if hasToken {
		tokens = append(tokens, current.String())
	}

	return tokens
}
