package appmessage

import "github.com/hexmire/subtail/domain/graphene"

// MempoolSyncProtocolVersion is the mempool-sync protocol version this
// implementation speaks. The GrapheneSet wire version it implies is fixed
// at iblt.V1-derived encoding for this design; a future protocol version
// may remap that binding.
const MempoolSyncProtocolVersion = 4

// MsgMempoolSync implements the Message interface and represents the
// responder's reply to GetMempoolSync: a GrapheneSet sketch of the
// responder's chosen transaction hashes.
type MsgMempoolSync struct {
	baseMessage
	Version     uint64
	NSenderTxs  uint64
	GrapheneSet *graphene.Set
}

// Command returns the protocol command for the message. This is part
// of the Message interface implementation.
func (msg *MsgMempoolSync) Command() MessageCommand {
	return CmdMempoolSync
}

// NewMsgMempoolSync returns a new MempoolSync message that conforms to the
// Message interface. See MsgMempoolSync for details.
func NewMsgMempoolSync(set *graphene.Set) *MsgMempoolSync {
	return &MsgMempoolSync{
		Version:     MempoolSyncProtocolVersion,
		NSenderTxs:  set.NSenderTxs,
		GrapheneSet: set,
	}
}
