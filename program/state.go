package program

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	MultisigDiscriminator         = accountDiscriminator("Multisig")
	ProposalDiscriminator         = accountDiscriminator("Proposal")
	VaultTransactionDiscriminator = accountDiscriminator("VaultTransaction")
)

// Multisig is the immutable membership of a treasury plus its proposal counter
type Multisig struct {
	CreateKey        solana.PublicKey   `json:"createKey"`
	Members          []solana.PublicKey `json:"members"`
	Threshold        uint16             `json:"threshold"`
	RentCollector    *solana.PublicKey  `json:"rentCollector,omitempty"`
	TransactionIndex uint64             `json:"transactionIndex"`
	Bump             uint8              `json:"bump"`
}

// IsMember does a binary search over the sorted member list
func (m *Multisig) IsMember(key solana.PublicKey) bool {
	return containsKey(m.Members, key)
}

// NextIndex reserves the next transaction index
func (m *Multisig) NextIndex() uint64 {
	m.TransactionIndex++
	return m.TransactionIndex
}

func (m Multisig) MarshalWithEncoder(encoder *ag_binary.Encoder) error {
	if err := writeKey(encoder, m.CreateKey); err != nil {
		return err
	}
	if err := writeKeys(encoder, m.Members); err != nil {
		return err
	}
	if err := encoder.WriteUint16(m.Threshold, binary.LittleEndian); err != nil {
		return err
	}
	if err := writeOptionalKey(encoder, m.RentCollector); err != nil {
		return err
	}
	if err := encoder.WriteUint64(m.TransactionIndex, binary.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteUint8(m.Bump)
}

func (m *Multisig) UnmarshalWithDecoder(decoder *ag_binary.Decoder) (err error) {
	if m.CreateKey, err = readKey(decoder); err != nil {
		return err
	}
	if m.Members, err = readKeys(decoder); err != nil {
		return err
	}
	if m.Threshold, err = decoder.ReadUint16(binary.LittleEndian); err != nil {
		return err
	}
	if m.RentCollector, err = readOptionalKey(decoder); err != nil {
		return err
	}
	if m.TransactionIndex, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	m.Bump, err = decoder.ReadUint8()
	return err
}

func (m *Multisig) Encode() ([]byte, error) {
	return encodeWithDiscriminator(MultisigDiscriminator, m)
}

func DecodeMultisig(data []byte) (*Multisig, error) {
	var m Multisig
	if err := decodeWithDiscriminator(data, MultisigDiscriminator, &m); err != nil {
		return nil, fmt.Errorf("failed to decode multisig: %w", err)
	}
	return &m, nil
}

// ProposalStatus is the stored part of a proposal lifecycle. Approved and
// expired are derived from votes and the clock, see IsApproved and IsExpired.
type ProposalStatus uint8

const (
	ProposalActive ProposalStatus = iota
	ProposalExecuted
	ProposalRejected
	ProposalCancelled
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalActive:
		return "Active"
	case ProposalExecuted:
		return "Executed"
	case ProposalRejected:
		return "Rejected"
	case ProposalCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

func (s ProposalStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Proposal struct {
	Multisig         solana.PublicKey   `json:"multisig"`
	TransactionIndex uint64             `json:"transactionIndex"`
	Creator          solana.PublicKey   `json:"creator"`
	Approvals        []solana.PublicKey `json:"approvals"`
	Rejections       []solana.PublicKey `json:"rejections"`
	Cancellations    []solana.PublicKey `json:"cancellations"`
	VotingDeadline   int64              `json:"votingDeadline"`
	Status           ProposalStatus     `json:"status"`
	CreatedAt        int64              `json:"createdAt"`
	ExecutedAt       int64              `json:"executedAt,omitempty"`
	Bump             uint8              `json:"bump"`
}

func (p *Proposal) IsApproved(threshold uint16) bool {
	return len(p.Approvals) >= int(threshold)
}

// IsExpired reports whether voting closed. The deadline itself is still open.
func (p *Proposal) IsExpired(now time.Time) bool {
	return p.Status != ProposalExecuted && now.Unix() > p.VotingDeadline
}

// IsTerminal reports whether the proposal can no longer change
func (p *Proposal) IsTerminal(now time.Time) bool {
	return p.Status != ProposalActive || p.IsExpired(now)
}

func (p *Proposal) HasApproved(key solana.PublicKey) bool {
	return containsKey(p.Approvals, key)
}

func (p *Proposal) HasRejected(key solana.PublicKey) bool {
	return containsKey(p.Rejections, key)
}

func (p *Proposal) HasCancelled(key solana.PublicKey) bool {
	return containsKey(p.Cancellations, key)
}

func (p Proposal) MarshalWithEncoder(encoder *ag_binary.Encoder) error {
	if err := writeKey(encoder, p.Multisig); err != nil {
		return err
	}
	if err := encoder.WriteUint64(p.TransactionIndex, binary.LittleEndian); err != nil {
		return err
	}
	if err := writeKey(encoder, p.Creator); err != nil {
		return err
	}
	for _, set := range [][]solana.PublicKey{p.Approvals, p.Rejections, p.Cancellations} {
		if err := writeKeys(encoder, set); err != nil {
			return err
		}
	}
	if err := encoder.WriteInt64(p.VotingDeadline, binary.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteUint8(uint8(p.Status)); err != nil {
		return err
	}
	if err := encoder.WriteInt64(p.CreatedAt, binary.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteInt64(p.ExecutedAt, binary.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteUint8(p.Bump)
}

func (p *Proposal) UnmarshalWithDecoder(decoder *ag_binary.Decoder) (err error) {
	if p.Multisig, err = readKey(decoder); err != nil {
		return err
	}
	if p.TransactionIndex, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if p.Creator, err = readKey(decoder); err != nil {
		return err
	}
	if p.Approvals, err = readKeys(decoder); err != nil {
		return err
	}
	if p.Rejections, err = readKeys(decoder); err != nil {
		return err
	}
	if p.Cancellations, err = readKeys(decoder); err != nil {
		return err
	}
	if p.VotingDeadline, err = decoder.ReadInt64(binary.LittleEndian); err != nil {
		return err
	}
	status, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	if status > uint8(ProposalCancelled) {
		return fmt.Errorf("invalid proposal status %d", status)
	}
	p.Status = ProposalStatus(status)
	if p.CreatedAt, err = decoder.ReadInt64(binary.LittleEndian); err != nil {
		return err
	}
	if p.ExecutedAt, err = decoder.ReadInt64(binary.LittleEndian); err != nil {
		return err
	}
	p.Bump, err = decoder.ReadUint8()
	return err
}

func (p *Proposal) Encode() ([]byte, error) {
	return encodeWithDiscriminator(ProposalDiscriminator, p)
}

func DecodeProposal(data []byte) (*Proposal, error) {
	var p Proposal
	if err := decodeWithDiscriminator(data, ProposalDiscriminator, &p); err != nil {
		return nil, fmt.Errorf("failed to decode proposal: %w", err)
	}
	return &p, nil
}

// VaultTransaction holds the compiled message a proposal executes. It never
// changes after creation.
type VaultTransaction struct {
	Multisig             solana.PublicKey `json:"multisig"`
	Creator              solana.PublicKey `json:"creator"`
	Index                uint64           `json:"index"`
	VaultIndex           uint8            `json:"vaultIndex"`
	VaultBump            uint8            `json:"vaultBump"`
	EphemeralSignerCount uint8            `json:"ephemeralSignerCount"`
	Message              []byte           `json:"message"`
	Bump                 uint8            `json:"bump"`
}

func (t VaultTransaction) MarshalWithEncoder(encoder *ag_binary.Encoder) error {
	if err := writeKey(encoder, t.Multisig); err != nil {
		return err
	}
	if err := writeKey(encoder, t.Creator); err != nil {
		return err
	}
	if err := encoder.WriteUint64(t.Index, binary.LittleEndian); err != nil {
		return err
	}
	for _, b := range []uint8{t.VaultIndex, t.VaultBump, t.EphemeralSignerCount} {
		if err := encoder.WriteUint8(b); err != nil {
			return err
		}
	}
	if err := writeBytes(encoder, t.Message); err != nil {
		return err
	}
	return encoder.WriteUint8(t.Bump)
}

func (t *VaultTransaction) UnmarshalWithDecoder(decoder *ag_binary.Decoder) (err error) {
	if t.Multisig, err = readKey(decoder); err != nil {
		return err
	}
	if t.Creator, err = readKey(decoder); err != nil {
		return err
	}
	if t.Index, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if t.VaultIndex, err = decoder.ReadUint8(); err != nil {
		return err
	}
	if t.VaultBump, err = decoder.ReadUint8(); err != nil {
		return err
	}
	if t.EphemeralSignerCount, err = decoder.ReadUint8(); err != nil {
		return err
	}
	if t.Message, err = readBytes(decoder); err != nil {
		return err
	}
	t.Bump, err = decoder.ReadUint8()
	return err
}

func (t *VaultTransaction) Encode() ([]byte, error) {
	return encodeWithDiscriminator(VaultTransactionDiscriminator, t)
}

func DecodeVaultTransaction(data []byte) (*VaultTransaction, error) {
	var t VaultTransaction
	if err := decodeWithDiscriminator(data, VaultTransactionDiscriminator, &t); err != nil {
		return nil, fmt.Errorf("failed to decode vault transaction: %w", err)
	}
	return &t, nil
}

func compareKeys(a, b solana.PublicKey) int {
	return bytes.Compare(a[:], b[:])
}

// sortKeys returns a sorted copy of keys
func sortKeys(keys []solana.PublicKey) []solana.PublicKey {
	out := append([]solana.PublicKey(nil), keys...)
	sort.Slice(out, func(i, j int) bool { return compareKeys(out[i], out[j]) < 0 })
	return out
}

func containsKey(sorted []solana.PublicKey, key solana.PublicKey) bool {
	i := sort.Search(len(sorted), func(i int) bool { return compareKeys(sorted[i], key) >= 0 })
	return i < len(sorted) && sorted[i] == key
}

// insertKey adds key to a sorted set, keeping it sorted
func insertKey(sorted []solana.PublicKey, key solana.PublicKey) []solana.PublicKey {
	i := sort.Search(len(sorted), func(i int) bool { return compareKeys(sorted[i], key) >= 0 })
	if i < len(sorted) && sorted[i] == key {
		return sorted
	}
	sorted = append(sorted, solana.PublicKey{})
	copy(sorted[i+1:], sorted[i:])
	sorted[i] = key
	return sorted
}
