package appmessage

import "github.com/hexmire/subtail/util/daghash"

// MempoolTransaction is the opaque payload carried by MempoolSyncTx: the
// core never parses transaction contents, it only ferries the hash the
// admission queue will re-validate against and the serialized bytes the
// mempool's own wire codec understands.
type MempoolTransaction struct {
	Hash    daghash.Hash
	Payload []byte
}

// MsgMempoolSyncTx implements the Message interface and represents the
// responder's answer to RequestMempoolSyncTx: the still-resident
// transactions matching the requested short-ids.
type MsgMempoolSyncTx struct {
	baseMessage
	Transactions []MempoolTransaction
}

// Command returns the protocol command for the message. This is part
// of the Message interface implementation.
func (msg *MsgMempoolSyncTx) Command() MessageCommand {
	return CmdMempoolSyncTx
}

// NewMsgMempoolSyncTx returns a new MempoolSyncTx message that conforms to
// the Message interface. See MsgMempoolSyncTx for details.
func NewMsgMempoolSyncTx(transactions []MempoolTransaction) *MsgMempoolSyncTx {
	return &MsgMempoolSyncTx{
		Transactions: transactions,
	}
}
