package wallet

import (
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"

	"txgrind/blockchain"
)

// Wallet holds one secp256k1 key and its P2PKH address.
type Wallet struct {
	PrivateKey *btcec.PrivateKey
	PublicKey  []byte
	Address    string
	Params     *chaincfg.Params
}

func NewWallet(params *chaincfg.Params) (*Wallet, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generating key")
	}
	return fromKey(priv, params), nil
}

func fromKey(priv *btcec.PrivateKey, params *chaincfg.Params) *Wallet {
	pub := priv.PubKey().SerializeCompressed()
	return &Wallet{
		PrivateKey: priv,
		PublicKey:  pub,
		Address:    blockchain.PubKeyToAddress(pub, params),
		Params:     params,
	}
}

func (w *Wallet) ExportWIF() (string, error) {
	wif, err := btcutil.NewWIF(w.PrivateKey, w.Params, true)
	if err != nil {
		return "", errors.Wrap(err, "encoding WIF")
	}
	return wif.String(), nil
}

// ImportWIF decodes a compressed-key WIF for params.
func ImportWIF(s string, params *chaincfg.Params) (*Wallet, error) {
	wif, err := btcutil.DecodeWIF(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrap(err, "decoding WIF")
	}
	if !wif.IsForNet(params) {
		return nil, errors.Errorf("WIF is not for %s", params.Name)
	}
	return fromKey(wif.PrivKey, params), nil
}

// LockingScript is the P2PKH script paying to the wallet address.
func (w *Wallet) LockingScript() ([]byte, error) {
	return blockchain.PayToAddrScript(w.Address, w.Params)
}

func SaveWallet(path string, w *Wallet) error {
	wif, err := w.ExportWIF()
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, []byte(wif+"\n"), 0600), "writing %s", path)
}

func LoadWallet(path string, params *chaincfg.Params) (*Wallet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return ImportWIF(string(raw), params)
}
