package youtube

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Kind is the shape of a resolved query.
type Kind int

const (
	KindSearch Kind = iota
	KindChannel
	KindPlaylist
)

func (k Kind) String() string {
	switch k {
	case KindChannel:
		return "channel"
	case KindPlaylist:
		return "playlist"
	default:
		return "search"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "channel":
		*k = KindChannel
	case "playlist":
		*k = KindPlaylist
	case "search":
		*k = KindSearch
	default:
		return fmt.Errorf("youtube: unknown query kind %q", b)
	}
	return nil
}

// Query is a resolved fetch intent.
type Query struct {
	Kind Kind `json:"kind"`
	// ID is the playlist or channel id.
	ID string `json:"id,omitempty"`
	// Title is the channel title, when the lookup returned one.
	Title string `json:"title,omitempty"`
	// Term is the verbatim search term.
	Term string `json:"term,omitempty"`
}

// PlaylistQuery returns a playlist intent.
func PlaylistQuery(id string) Query { return Query{Kind: KindPlaylist, ID: id} }

// ChannelQuery returns a channel intent. title may be empty.
func ChannelQuery(id, title string) Query { return Query{Kind: KindChannel, ID: id, Title: title} }

// SearchQuery returns a keyword search intent.
func SearchQuery(term string) Query { return Query{Kind: KindSearch, Term: term} }

// Key is the normalized identity of the query, used in cache keys.
func (q Query) Key() string {
	if q.Kind == KindSearch {
		return "search:" + strings.ToLower(strings.Join(strings.Fields(q.Term), " "))
	}
	return q.Kind.String() + ":" + q.ID
}

func (q Query) String() string {
	if q.Kind == KindSearch {
		return "search " + q.Term
	}
	return q.Kind.String() + " " + q.ID
}

var (
	channelIDRegex  = regexp.MustCompile(`^UC[\w-]{22}$`)
	handleRegex     = regexp.MustCompile(`^@[\w.\-]+$`)
	listParamRegex  = regexp.MustCompile(`[?&]list=([\w-]+)`)
	urlHandleRegex  = regexp.MustCompile(`/(@[\w.\-]+)`)
	urlChannelRegex = regexp.MustCompile(`/(?:channel|c|user)/([^/?#&]+)`)
)

// Resolver maps free-form input to a Query.
type Resolver struct {
	api API
}

// NewResolver creates a resolver using api for handle and channel lookups.
func NewResolver(api API) *Resolver {
	return &Resolver{api: api}
}

// Resolve maps input to a Query. Order:
//
//  1. a list= parameter always yields a playlist query;
//  2. a channel shape (@handle, /channel/, /c/, /user/, or a bare channel id)
//     yields a channel query, looking the token up by handle and then by
//     channel search when it is not already a channel id;
//  3. anything else is a verbatim search term.
func (r *Resolver) Resolve(ctx context.Context, input string) (Query, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Query{}, &FetchError{Op: "resolve", Err: ErrInvalidQuery}
	}

	if id := playlistParam(input); id != "" {
		return PlaylistQuery(id), nil
	}

	token, ok := channelToken(input)
	if !ok {
		return SearchQuery(input), nil
	}
	if channelIDRegex.MatchString(token) {
		return ChannelQuery(token, ""), nil
	}

	q, err := r.lookupChannel(ctx, token)
	if err != nil {
		return Query{}, &FetchError{Op: "resolve", Query: input, Err: err}
	}
	log.Debug().Str("component", "youtube").Str("input", input).Str("channel", q.ID).Msg("resolved channel")
	return q, nil
}

// lookupChannel tries the handle index first. It does not cover every legacy
// username, so an empty answer falls back to a channel-type search.
func (r *Resolver) lookupChannel(ctx context.Context, token string) (Query, error) {
	ch, err := r.api.ChannelByHandle(ctx, token)
	if err != nil {
		return Query{}, err
	}
	if ch != nil && ch.Id != "" {
		title := ""
		if ch.Snippet != nil {
			title = ch.Snippet.Title
		}
		return ChannelQuery(ch.Id, title), nil
	}

	ids, err := r.api.SearchChannels(ctx, strings.TrimPrefix(token, "@"), 1)
	if err != nil {
		return Query{}, err
	}
	if len(ids) == 0 {
		return Query{}, fmt.Errorf("%w: %s", ErrChannelNotFound, token)
	}
	return ChannelQuery(ids[0], ""), nil
}

// playlistParam returns the list= query parameter, if any.
func playlistParam(input string) string {
	if !strings.Contains(input, "list=") {
		return ""
	}
	raw := input
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	if u, err := url.Parse(raw); err == nil {
		if id := u.Query().Get("list"); id != "" {
			return id
		}
	}
	if m := listParamRegex.FindStringSubmatch(input); m != nil {
		return m[1]
	}
	return ""
}

// channelToken extracts the channel-identifying token from input.
func channelToken(input string) (string, bool) {
	if channelIDRegex.MatchString(input) || handleRegex.MatchString(input) {
		return input, true
	}
	if m := urlHandleRegex.FindStringSubmatch(input); m != nil {
		return m[1], true
	}
	if m := urlChannelRegex.FindStringSubmatch(input); m != nil {
		if tok, err := url.PathUnescape(m[1]); err == nil {
			return tok, true
		}
		return m[1], true
	}
	return "", false
}
