package appmessage

// MempoolSyncInvType identifies the flavor of inventory a GetMempoolSync
// request is asking to reconcile. The core recognizes exactly one type;
// any other value is a protocol violation.
type MempoolSyncInvType uint8

// MempoolSyncInvTx is the only inventory type this protocol version
// understands.
const MempoolSyncInvTx MempoolSyncInvType = 0

// MempoolSyncInfo carries the requester's view of its own mempool so the
// responder can decide how much of its own mempool to offer and how to
// size the short-id keys for this session.
type MempoolSyncInfo struct {
	NTxInMempool           uint64
	NRemainingMempoolBytes uint64
	K0                     uint64
	K1                     uint64
	NSatoshiPerK           uint64
}

// MsgGetMempoolSync implements the Message interface and represents the
// first message of a mempool synchronization session: requester to
// responder.
type MsgGetMempoolSync struct {
	baseMessage
	InvType MempoolSyncInvType
	Info    MempoolSyncInfo
}

// Command returns the protocol command for the message. This is part
// of the Message interface implementation.
func (msg *MsgGetMempoolSync) Command() MessageCommand {
	return CmdGetMempoolSync
}

// NewMsgGetMempoolSync returns a new GetMempoolSync message that conforms
// to the Message interface. See MsgGetMempoolSync for details.
func NewMsgGetMempoolSync(info MempoolSyncInfo) *MsgGetMempoolSync {
	return &MsgGetMempoolSync{
		InvType: MempoolSyncInvTx,
		Info:    info,
	}
}
