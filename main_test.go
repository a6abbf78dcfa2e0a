package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"txgrind/blockchain"
	"txgrind/database"
	"txgrind/grind"
)

const prevOutpoint = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b:0"

// runApp runs the CLI with stdin and returns stdout.
func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"txgrind"}, args...))
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TXGRIND_DB_PATH", filepath.Join(dir, "txgrind.db"))
	t.Setenv("TXGRIND_NETWORK", "regtest")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"value=00", "bits=0x1d00ffff", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"value": "00", "bits": "0x1d00ffff", "empty": ""}, params)

	_, err = parseParams([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseParams([]string{"=x"})
	assert.Error(t, err)
}

func TestParseTransaction(t *testing.T) {
	tx := blockchain.NewTransaction(
		[]blockchain.TxInput{{TxID: strings.Split(prevOutpoint, ":")[0], Sequence: 3}},
		[]blockchain.TxOutput{{Amount: 10, Script: "51"}},
	)
	raw, err := tx.Serialize()
	require.NoError(t, err)
	js, err := json.Marshal(tx)
	require.NoError(t, err)

	for name, input := range map[string]string{
		"json":       string(js),
		"hex":        "  " + hex.EncodeToString(raw) + "\n",
		"quoted hex": `"` + hex.EncodeToString(raw) + `"`,
	} {
		got, err := parseTransaction([]byte(input))
		require.NoError(t, err, name)
		assert.Equal(t, tx.ID, got.ID, name)
	}

	_, err = parseTransaction([]byte("   "))
	assert.Error(t, err)
	_, err = parseTransaction([]byte(`{"inputs":[{"txid":"zz"}]}`))
	assert.Error(t, err)
}

func TestGrindCommand_StoresResult(t *testing.T) {
	dir := setupEnv(t)

	txJSON, err := runApp(t, "", "newtx", "--outpoint", prevOutpoint, "--amount", "1000", "--script", "51")
	require.NoError(t, err)

	txPath := filepath.Join(dir, "tx.json")
	require.NoError(t, os.WriteFile(txPath, []byte(txJSON), 0644))

	out, err := runApp(t, "", "grind", "--tx", txPath, "--criteria", "prefix", "--param", "value=00")
	require.NoError(t, err)

	var res grindOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, strings.HasPrefix(res.TxID, "00"), res.TxID)
	assert.Empty(t, res.Error)
	require.NotNil(t, res.Tx)
	assert.Equal(t, uint32(res.Iterations), res.Tx.Inputs[0].Sequence)

	grinded, err := blockchain.DecodeTransactionHex(res.Hex)
	require.NoError(t, err)
	assert.Equal(t, res.TxID, grinded.ID)

	db, err := database.OpenDB(filepath.Join(dir, "txgrind.db"))
	require.NoError(t, err)
	rec, err := db.GetRecord(res.TxID)
	require.NoError(t, err)
	assert.Equal(t, "sequence", rec.Grinder)
	assert.Equal(t, "prefix:value=00", rec.Criteria)
	assert.Equal(t, res.OriginalID, rec.OriginalID)
	require.NoError(t, db.Close())

	out, err = runApp(t, "", "history", "show", res.TxID)
	require.NoError(t, err)
	assert.Contains(t, out, res.TxID)
	assert.Contains(t, out, "outputs_asm")

	out, err = runApp(t, "", "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, res.TxID)
	assert.Contains(t, out, "1 results, 1 runs recorded")
}

func TestGrindCommand_OpReturnFromStdin(t *testing.T) {
	setupEnv(t)

	txHex, err := runApp(t, "", "newtx", "--outpoint", prevOutpoint, "--amount", "5", "--script", "51", "--hex")
	require.NoError(t, err)

	out, err := runApp(t, txHex, "--db", "", "grind", "--grinder", "opreturn", "--criteria", "suffix", "--param", "value=0")
	require.NoError(t, err)

	var res grindOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, strings.HasSuffix(res.TxID, "0"))
	assert.Len(t, res.Tx.Outputs, 1+int(res.Iterations))
}

func TestGrindCommand_Exhausted(t *testing.T) {
	dir := setupEnv(t)
	metricsPath := filepath.Join(dir, "txgrind.prom")

	txJSON, err := runApp(t, "", "newtx", "--outpoint", prevOutpoint, "--amount", "1", "--script", "51")
	require.NoError(t, err)

	out, err := runApp(t, txJSON, "grind", "--criteria", "equals",
		"--param", "hash=0000000000000000000000000000000000000000000000000000000000000000",
		"--max-iterations", "20", "--metrics-file", metricsPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iteration limit reached")

	var res grindOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, uint64(20), res.Iterations)
	assert.NotEmpty(t, res.Error)

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `outcome="exhausted"`)

	out, err = runApp(t, "", "history", "list", "--json")
	require.NoError(t, err)
	assert.Equal(t, "null\n", out)
}

func TestBatchCommand(t *testing.T) {
	dir := setupEnv(t)

	txJSON, err := runApp(t, "", "newtx", "--outpoint", prevOutpoint, "--amount", "7", "--script", "51")
	require.NoError(t, err)

	jobs := `[
	  {"tx": ` + txJSON + `, "criteria": {"kind": "even"}},
	  {"tx": ` + txJSON + `, "criteria": {"kind": "target", "params": {"bits": 545259519}}, "grinder": "opreturn"},
	  {"tx": ` + txJSON + `, "criteria": {"kind": "even"}, "grinder": "nonce"}
	]`
	jobsPath := filepath.Join(dir, "jobs.json")
	require.NoError(t, os.WriteFile(jobsPath, []byte(jobs), 0644))

	out, err := runApp(t, "", "batch", "--jobs", jobsPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 jobs failed")

	var outs []grindOutput
	require.NoError(t, json.Unmarshal([]byte(out), &outs))
	require.Len(t, outs, 3)
	assert.Empty(t, outs[0].Error)
	assert.Empty(t, outs[1].Error)
	assert.Contains(t, outs[2].Error, "unknown grinder")
}

func TestBatchCommand_ZeroMaxIterationsOverridesConfig(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("TXGRIND_MAX_ITERATIONS", "1")

	txJSON, err := runApp(t, "", "newtx", "--outpoint", prevOutpoint, "--amount", "7", "--script", "51")
	require.NoError(t, err)

	// A three character prefix takes far more than one mutation.
	criteria := `{"kind": "prefix", "params": {"value": "000"}}`
	jobs := `[
	  {"tx": ` + txJSON + `, "criteria": ` + criteria + `},
	  {"tx": ` + txJSON + `, "criteria": ` + criteria + `, "max_iterations": 0}
	]`
	jobsPath := filepath.Join(dir, "jobs.json")
	require.NoError(t, os.WriteFile(jobsPath, []byte(jobs), 0644))

	out, err := runApp(t, "", "batch", "--no-store", "--jobs", jobsPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 jobs failed")

	var outs []grindOutput
	require.NoError(t, json.Unmarshal([]byte(out), &outs))
	require.Len(t, outs, 2)
	assert.Contains(t, outs[0].Error, "iteration limit reached")
	assert.Empty(t, outs[1].Error)
	assert.True(t, strings.HasPrefix(outs[1].TxID, "000"), outs[1].TxID)
}

func TestGrindCommand_GrinderUsageListsBuiltins(t *testing.T) {
	for _, f := range grindCommand().Flags {
		sf, ok := f.(*cli.StringFlag)
		if !ok || sf.Name != "grinder" {
			continue
		}
		for _, name := range grind.GrinderNames() {
			assert.Contains(t, sf.Usage, name)
		}
		return
	}
	t.Fatal("grind has no --grinder flag")
}

func TestWalletCommands(t *testing.T) {
	dir := setupEnv(t)
	walletPath := filepath.Join(dir, "txgrind.wallet")

	out, err := runApp(t, "", "wallet", "new", "--wallet", walletPath)
	require.NoError(t, err)
	var created walletOutput
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "regtest", created.Network)

	_, err = runApp(t, "", "wallet", "new", "--wallet", walletPath)
	assert.Error(t, err, "refuses to overwrite")

	out, err = runApp(t, "", "wallet", "show", "--wallet", walletPath)
	require.NoError(t, err)
	var shown walletOutput
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, created.Address, shown.Address)

	out, err = runApp(t, "", "newtx", "--outpoint", prevOutpoint, "--amount", "99", "--sequence", "5", "--wallet", walletPath)
	require.NoError(t, err)
	var tx blockchain.Transaction
	require.NoError(t, json.Unmarshal([]byte(out), &tx))

	script, err := blockchain.PayToAddrScript(created.Address, &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	require.Len(t, tx.Outputs, 1)
	assert.Equal(t, hex.EncodeToString(script), tx.Outputs[0].Script)
	assert.Equal(t, int64(99), tx.Outputs[0].Amount)
	require.Len(t, tx.Inputs, 1)
	assert.Equal(t, uint32(5), tx.Inputs[0].Sequence)
}
