// Package chatsync keeps the client's view of chat threads eventually
// consistent with a server that can push events at any time.
//
// It owns the normalized stores (per-chat message sequences, the chat
// directory), the pagination cursor for history scroll-back, the ephemeral
// typing state, the outbound send pipeline, and the realtime channel that
// feeds server events into all of them.
//
// There is no locking protocol between producers: safety comes from the
// id-checked, idempotent mutation contracts of the stores, which hold under
// arbitrary interleaving of fetch completions and pushed events.
package chatsync
