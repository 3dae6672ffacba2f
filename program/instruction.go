package program

import (
	"encoding/binary"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	MultisigCreateDiscriminator        = instructionDiscriminator("multisig_create")
	ProposalCreateDiscriminator        = instructionDiscriminator("proposal_create")
	ProposalApproveDiscriminator       = instructionDiscriminator("proposal_approve")
	ProposalRejectDiscriminator        = instructionDiscriminator("proposal_reject")
	ProposalCancelDiscriminator        = instructionDiscriminator("proposal_cancel")
	ProposalExecuteDiscriminator       = instructionDiscriminator("proposal_execute")
	ProposalAccountsCloseDiscriminator = instructionDiscriminator("proposal_accounts_close")
)

// MultisigCreateArgs accounts:
//
//  0. multisig        writable
//  1. create_key      signer
//  2. creator         signer, writable (pays storage)
//  3. system program
type MultisigCreateArgs struct {
	Members       []solana.PublicKey
	Threshold     uint16
	RentCollector *solana.PublicKey
}

func (a MultisigCreateArgs) MarshalWithEncoder(encoder *ag_binary.Encoder) error {
	if err := writeKeys(encoder, a.Members); err != nil {
		return err
	}
	if err := encoder.WriteUint16(a.Threshold, binary.LittleEndian); err != nil {
		return err
	}
	return writeOptionalKey(encoder, a.RentCollector)
}

func (a *MultisigCreateArgs) UnmarshalWithDecoder(decoder *ag_binary.Decoder) (err error) {
	if a.Members, err = readKeys(decoder); err != nil {
		return err
	}
	if a.Threshold, err = decoder.ReadUint16(binary.LittleEndian); err != nil {
		return err
	}
	a.RentCollector, err = readOptionalKey(decoder)
	return err
}

// ProposalCreateArgs accounts:
//
//  0. multisig        writable
//  1. transaction     writable
//  2. proposal        writable
//  3. creator         signer, writable (pays storage)
//  4. system program
type ProposalCreateArgs struct {
	TransactionIndex uint64
	VotingDeadline   int64
	EphemeralSigners uint8
	Message          []byte
}

func (a ProposalCreateArgs) MarshalWithEncoder(encoder *ag_binary.Encoder) error {
	if err := encoder.WriteUint64(a.TransactionIndex, binary.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteInt64(a.VotingDeadline, binary.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteUint8(a.EphemeralSigners); err != nil {
		return err
	}
	return writeBytes(encoder, a.Message)
}

func (a *ProposalCreateArgs) UnmarshalWithDecoder(decoder *ag_binary.Decoder) (err error) {
	if a.TransactionIndex, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if a.VotingDeadline, err = decoder.ReadInt64(binary.LittleEndian); err != nil {
		return err
	}
	if a.EphemeralSigners, err = decoder.ReadUint8(); err != nil {
		return err
	}
	a.Message, err = readBytes(decoder)
	return err
}

func EncodeMultisigCreate(args MultisigCreateArgs) ([]byte, error) {
	return encodeWithDiscriminator(MultisigCreateDiscriminator, args)
}

func EncodeProposalCreate(args ProposalCreateArgs) ([]byte, error) {
	return encodeWithDiscriminator(ProposalCreateDiscriminator, args)
}

// EncodeNoArgs is used by approve, reject, cancel, execute and close whose
// data is only the discriminator.
func EncodeNoArgs(disc [8]byte) []byte {
	return append([]byte(nil), disc[:]...)
}
