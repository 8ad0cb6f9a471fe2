package appmessage

import "github.com/hexmire/subtail/domain/shortid"

// MaxShortIDsPerRequestMempoolSyncTxMsg bounds the number of short-ids a
// single request may carry, matching MaxInvPerMsg like every other
// inventory-shaped message in this protocol.
const MaxShortIDsPerRequestMempoolSyncTxMsg = MaxInvPerMsg

// MsgRequestMempoolSyncTx implements the Message interface and represents
// the requester's follow-up asking the responder to resolve the short-ids
// that survived peeling back into full transactions.
type MsgRequestMempoolSyncTx struct {
	baseMessage
	ShortIDs []shortid.ID
}

// Command returns the protocol command for the message. This is part
// of the Message interface implementation.
func (msg *MsgRequestMempoolSyncTx) Command() MessageCommand {
	return CmdRequestMempoolSyncTx
}

// NewMsgRequestMempoolSyncTx returns a new RequestMempoolSyncTx message
// that conforms to the Message interface. See MsgRequestMempoolSyncTx for
// details.
func NewMsgRequestMempoolSyncTx(shortIDs []shortid.ID) *MsgRequestMempoolSyncTx {
	return &MsgRequestMempoolSyncTx{
		ShortIDs: shortIDs,
	}
}
