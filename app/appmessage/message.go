// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package appmessage

import "fmt"

// MaxMessagePayload is the maximum bytes a message can be regardless of other
// individual limits imposed by messages themselves.
const MaxMessagePayload = 1024 * 1024 * 32 // 32MB

// MaxInvPerMsg is the maximum number of hashes/short-ids that can be
// enumerated in any single message of this protocol.
const MaxInvPerMsg = 1 << 17

// MessageCommand is a number in the header of a message that represents its type.
type MessageCommand uint32

func (cmd MessageCommand) String() string {
	cmdString, ok := MessageCommandToString[cmd]
	if !ok {
		cmdString = "unknown command"
	}
	return fmt.Sprintf("%s [code %d]", cmdString, uint32(cmd))
}

// Commands used in this protocol's message headers to describe the type of message.
const (
	CmdGetMempoolSync MessageCommand = iota
	CmdMempoolSync
	CmdRequestMempoolSyncTx
	CmdMempoolSyncTx
)

// MessageCommandToString maps all MessageCommands to their string representation.
var MessageCommandToString = map[MessageCommand]string{
	CmdGetMempoolSync:       "GetMempoolSync",
	CmdMempoolSync:          "MempoolSync",
	CmdRequestMempoolSyncTx: "RequestMempoolSyncTx",
	CmdMempoolSyncTx:        "MempoolSyncTx",
}

// Message is an interface that describes a message of this protocol. A type
// that implements Message has complete control over the representation of
// its data and may therefore contain additional or fewer fields than those
// which are used directly in the wire-encoded message.
type Message interface {
	Command() MessageCommand
}

// baseMessage is embedded by every concrete Message implementation. It
// carries no state of its own today; it exists so a field can be added once
// to every message type without touching each of them individually.
type baseMessage struct{}
