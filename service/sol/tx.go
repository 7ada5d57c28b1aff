package sol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/realtoken-app/go-realtoken/service/persist"
)

// Instruction names understood by the platform's mint program
const (
	InstructionCreateMint       = "create_mint"
	InstructionCreateATA        = "create_associated_token_account"
	InstructionVerifyCollection = "verify_collection"
)

// Instruction is a single program invocation inside a transaction. The core supplies
// ordering and parameters only; execution semantics belong to the chain.
type Instruction struct {
	Program  string            `json:"program"`
	Accounts []persist.Address `json:"accounts"`
	Params   map[string]string `json:"params"`
}

// Message is the signed portion of a transaction
type Message struct {
	RecentBlockhash string          `json:"recent_blockhash"`
	FeePayer        persist.Address `json:"fee_payer"`
	Instructions    []Instruction   `json:"instructions"`
}

// Bytes returns the canonical encoding of the message, the input to every signature.
// encoding/json sorts map keys, so the encoding is stable for identical messages.
func (m Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// Transaction is a message plus the signatures collected so far, keyed by signer address
type Transaction struct {
	Message    Message           `json:"message"`
	Signatures map[string]string `json:"signatures"`
}

// PartiallySign adds signatures for the given keypairs, leaving existing ones in place
func (t *Transaction) PartiallySign(signers ...Keypair) error {
	msg, err := t.Message.Bytes()
	if err != nil {
		return fmt.Errorf("error encoding transaction message: %w", err)
	}
	if t.Signatures == nil {
		t.Signatures = map[string]string{}
	}
	for _, s := range signers {
		t.Signatures[s.Address().String()] = base58.Encode(s.Sign(msg))
	}
	return nil
}

// AttachSignature adds an externally produced signature, verifying it against the message
func (t *Transaction) AttachSignature(signer persist.Address, sigBase58 string) error {
	msg, err := t.Message.Bytes()
	if err != nil {
		return fmt.Errorf("error encoding transaction message: %w", err)
	}
	sig, err := base58.Decode(sigBase58)
	if err != nil {
		return fmt.Errorf("error decoding signature: %w", err)
	}
	if !VerifySignature(signer, msg, sig) {
		return ErrInvalidSignature{Signer: signer}
	}
	if t.Signatures == nil {
		t.Signatures = map[string]string{}
	}
	t.Signatures[signer.String()] = sigBase58
	return nil
}

// Serialize encodes the transaction for transport
func (t Transaction) Serialize() ([]byte, error) {
	return json.Marshal(t)
}

// SerializeBase64 encodes the transaction as base64 for handing to a wallet
func (t Transaction) SerializeBase64() (string, error) {
	raw, err := t.Serialize()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DeserializeTransaction decodes a transaction produced by Serialize
func DeserializeTransaction(raw []byte) (Transaction, error) {
	tx := Transaction{}
	if err := json.Unmarshal(raw, &tx); err != nil {
		return Transaction{}, fmt.Errorf("error decoding transaction: %w", err)
	}
	return tx, nil
}

// ErrInvalidSignature is returned when an attached signature does not verify
type ErrInvalidSignature struct {
	Signer persist.Address
}

func (e ErrInvalidSignature) Error() string {
	return fmt.Sprintf("signature by %s does not verify against transaction message", e.Signer)
}
