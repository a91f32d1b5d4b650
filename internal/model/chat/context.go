package chat

// ContextKind tags the Context sum type.
type ContextKind int

const (
	ContextNone ContextKind = iota
	ContextChannel
	ContextPrivate
)

// Context addresses either a channel or a private conversation. The zero
// value means "nowhere": messages routed there are dropped on purpose.
//
// The same type doubles as the process-wide active-context pointer (what the
// human is currently viewing).
type Context struct {
	Kind ContextKind `json:"kind"`
	Name string      `json:"name,omitempty"`
}

// ChannelContext targets the named channel.
func ChannelContext(name string) Context {
	return Context{Kind: ContextChannel, Name: name}
}

// PrivateContext targets the private conversation with the given nickname.
func PrivateContext(nickname string) Context {
	return Context{Kind: ContextPrivate, Name: nickname}
}

// IsNone reports whether the context addresses nothing.
func (c Context) IsNone() bool {
	return c.Kind == ContextNone
}
