package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Line is a decoded wire message: all replica<->replica and
// replica<->master traffic is a text line of space-separated tokens.
type Line struct {
	Verb string
	Args []string
}

func (l Line) String() string {
	if len(l.Args) == 0 {
		return l.Verb
	}
	return l.Verb + " " + strings.Join(l.Args, " ")
}

// DecodeLine splits a raw wire line into a verb and its arguments.
func DecodeLine(raw string) (Line, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Line{}, fmt.Errorf("protocol: empty line")
	}
	return Line{Verb: fields[0], Args: fields[1:]}, nil
}

// Heartbeat encodes "<role> <id>".
func EncodeHeartbeat(role Role, id string) string {
	return fmt.Sprintf("%s %s", role, id)
}

func DecodeHeartbeat(l Line) (role Role, id string, err error) {
	if len(l.Args) != 1 {
		return "", "", fmt.Errorf("protocol: malformed heartbeat %q", l)
	}
	switch Role(l.Verb) {
	case RoleParticipant, RoleCoordinator, RoleObserver:
		return Role(l.Verb), l.Args[0], nil
	default:
		return "", "", fmt.Errorf("protocol: unknown heartbeat role %q", l.Verb)
	}
}

// EncodeVoteReq encodes "votereq add <name> <url>" or "votereq delete <name>".
func EncodeVoteReq(u Update) string {
	return "votereq " + u.String()
}

func DecodeVoteReq(l Line) (Update, error) {
	if l.Verb != "votereq" || len(l.Args) < 2 {
		return Update{}, fmt.Errorf("protocol: malformed votereq %q", l)
	}
	switch l.Args[0] {
	case "add":
		if len(l.Args) != 3 {
			return Update{}, fmt.Errorf("protocol: malformed votereq add %q", l)
		}
		return Add(l.Args[1], l.Args[2]), nil
	case "delete":
		if len(l.Args) != 2 {
			return Update{}, fmt.Errorf("protocol: malformed votereq delete %q", l)
		}
		return Delete(l.Args[1]), nil
	default:
		return Update{}, fmt.Errorf("protocol: unknown update kind %q", l.Args[0])
	}
}

// EncodeVoteReply encodes "votereply yes" / "votereply no".
func EncodeVoteReply(v Vote) string { return "votereply " + v.String() }

func DecodeVoteReply(l Line) (Vote, error) {
	if l.Verb != "votereply" || len(l.Args) != 1 {
		return false, fmt.Errorf("protocol: malformed votereply %q", l)
	}
	switch l.Args[0] {
	case "yes":
		return VoteYes, nil
	case "no":
		return VoteNo, nil
	default:
		return false, fmt.Errorf("protocol: unknown vote %q", l.Args[0])
	}
}

// EncodeStateReply encodes "state <aborted|uncertain|committable|committed>".
func EncodeStateReply(c CommitState) string { return "state " + c.String() }

func DecodeStateReply(l Line) (CommitState, error) {
	if l.Verb != "state" || len(l.Args) != 1 {
		return 0, fmt.Errorf("protocol: malformed state reply %q", l)
	}
	return ParseCommitState(l.Args[0])
}

// EncodeSongList serializes (name,url) pairs as
// `songlist "name1"="url1" "name2"="url2" ...`: each name and url is
// Go-quoted with spaces escaped as \x20, so every pair stays a single
// whitespace-free token through DecodeLine.
func EncodeSongList(songList map[string]string) string {
	var b strings.Builder
	b.WriteString("songlist")
	for name, url := range songList {
		b.WriteByte(' ')
		b.WriteString(strings.ReplaceAll(strconv.Quote(name), " ", `\x20`))
		b.WriteByte('=')
		b.WriteString(strings.ReplaceAll(strconv.Quote(url), " ", `\x20`))
	}
	return b.String()
}

func DecodeSongList(l Line) (map[string]string, error) {
	if l.Verb != "songlist" {
		return nil, fmt.Errorf("protocol: malformed songlist %q", l)
	}
	out := make(map[string]string, len(l.Args))
	for _, pair := range l.Args {
		eq := strings.IndexByte(pair, '=')
		if eq < 0 {
			return nil, fmt.Errorf("protocol: malformed songlist pair %q", pair)
		}
		name, err := strconv.Unquote(pair[:eq])
		if err != nil {
			return nil, fmt.Errorf("protocol: malformed songlist name %q: %w", pair, err)
		}
		url, err := strconv.Unquote(pair[eq+1:])
		if err != nil {
			return nil, fmt.Errorf("protocol: malformed songlist url %q: %w", pair, err)
		}
		out[name] = url
	}
	return out, nil
}

// Master-facing lines.
const (
	LineAckCommit = "ack commit"
	LineAckAbort  = "ack abort"
)

func EncodeResp(url string) string {
	if url == "" {
		url = "NONE"
	}
	return "resp " + url
}

func DecodeResp(l Line) (string, error) {
	if l.Verb != "resp" || len(l.Args) != 1 {
		return "", fmt.Errorf("protocol: malformed resp %q", l)
	}
	url := l.Args[0]
	if url == "NONE" {
		return "", nil
	}
	return url, nil
}

func EncodeCoordinatorAnnounce(id string) string { return "coordinator " + id }
