// Package proofpipeline composes the two external programs — a circuit
// witness generator and a Groth16 prover — behind a uniform interface,
// producing the canonical proof record from either a burn or a spend
// circuit input.
package proofpipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"wormcore/internal/accountproof"
	"wormcore/internal/chain"
	"wormcore/internal/commitment"
	"wormcore/internal/wormerr"
)

const (
	circuitProofOfBurn = "proof_of_burn"
	circuitSpend       = "spend"
)

// witnessSubcommand maps a circuit's .dat/.zkey filename stem to the
// generate-witness positional argument the witness generator expects.
// proof_of_burn's artifact files are underscored but its subcommand is
// hyphenated; spend is spelled identically in both.
func witnessSubcommand(circuitName string) string {
	if circuitName == circuitProofOfBurn {
		return "proof-of-burn"
	}
	return circuitName
}

// SpendInput is the smaller input JSON used for spend proofs (§4.8).
type SpendInput struct {
	BurnKey          string `json:"burnKey"`
	Balance          string `json:"balance"`
	WithdrawnBalance string `json:"withdrawnBalance"`
	ReceiverAddress  string `json:"receiverAddress"`
	Fee              string `json:"fee"`
}

// rapidsnarkOutput is the on-disk shape the external prover writes.
type rapidsnarkOutput struct {
	PiA      [3]string           `json:"pi_a"`
	PiB      [3][2]string        `json:"pi_b"`
	PiC      [3]string           `json:"pi_c"`
	Protocol string              `json:"protocol"`
	Public   []string            `json:"public"`
}

// Pipeline runs the witness-generation and proving steps against a fixed
// parameter directory and working directory.
type Pipeline struct {
	ParamsDir string
	WorkDir   string

	// SelfExecutable resolves the path this process re-invokes for both
	// subprocess steps; defaults to os.Executable. Overridable for tests.
	SelfExecutable func() (string, error)
}

// New builds a Pipeline rooted at paramsDir (containing the four .dat/
// .zkey artifacts) with workDir as the scratch directory for
// input.json/witness.wtns/rapidsnark_output.json.
func New(paramsDir, workDir string) *Pipeline {
	return &Pipeline{ParamsDir: paramsDir, WorkDir: workDir, SelfExecutable: os.Executable}
}

// RunBurn produces a Groth16 proof for a burn/mint circuit input.
func (p *Pipeline) RunBurn(ctx context.Context, input accountproof.CircuitInput) (chain.GrothProof, error) {
	return p.run(ctx, circuitProofOfBurn, input)
}

// RunSpend produces a Groth16 proof for a spend circuit input.
func (p *Pipeline) RunSpend(ctx context.Context, input SpendInput) (chain.GrothProof, error) {
	return p.run(ctx, circuitSpend, input)
}

func (p *Pipeline) run(ctx context.Context, circuitName string, input any) (chain.GrothProof, error) {
	self, err := p.SelfExecutable()
	if err != nil {
		return chain.GrothProof{}, fmt.Errorf("proofpipeline: resolving self executable: %w", err)
	}

	inputPath := filepath.Join(p.WorkDir, "input.json")
	if err := writeJSON(inputPath, input); err != nil {
		return chain.GrothProof{}, fmt.Errorf("proofpipeline: writing input.json: %w", err)
	}

	datPath := filepath.Join(p.ParamsDir, circuitName+".dat")
	zkeyPath := filepath.Join(p.ParamsDir, circuitName+".zkey")
	if _, err := os.Stat(datPath); err != nil {
		return chain.GrothProof{}, wormerr.Wrap(wormerr.RequiredFilesMissing, datPath, err)
	}
	if _, err := os.Stat(zkeyPath); err != nil {
		return chain.GrothProof{}, wormerr.Wrap(wormerr.RequiredFilesMissing, zkeyPath, err)
	}

	witnessPath := filepath.Join(p.WorkDir, "witness.wtns")
	if err := p.invoke(ctx, self, wormerr.WitnessGenerationFailed,
		"generate-witness", witnessSubcommand(circuitName), "--input", inputPath, "--dat", datPath, "--witness", witnessPath,
	); err != nil {
		return chain.GrothProof{}, err
	}

	outPath := filepath.Join(p.WorkDir, "rapidsnark_output.json")
	if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
		return chain.GrothProof{}, fmt.Errorf("proofpipeline: deleting stale rapidsnark output: %w", err)
	}
	if err := p.invoke(ctx, self, wormerr.ProofGenerationFailed,
		"rapidsnark", "--zkey", zkeyPath, "--witness", witnessPath, "--out", outPath,
	); err != nil {
		return chain.GrothProof{}, err
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		return chain.GrothProof{}, wormerr.Wrap(wormerr.ProofGenerationFailed, "reading rapidsnark output", err)
	}
	var out rapidsnarkOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return chain.GrothProof{}, wormerr.Wrap(wormerr.ProofGenerationFailed, "decoding rapidsnark output", err)
	}

	var piB [3]commitment.GrothG2Coord
	for i, pair := range out.PiB {
		piB[i] = commitment.GrothG2Coord(pair)
	}

	return chain.GrothProof{
		PiA:     out.PiA,
		PiBSwap: commitment.SwapPiB(piB),
		PiC:     out.PiC,
		Public:  out.Public,
	}, nil
}

func (p *Pipeline) invoke(ctx context.Context, self string, failureKind wormerr.Kind, args ...string) error {
	cmd := exec.CommandContext(ctx, self, args...)
	cmd.Dir = p.WorkDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return wormerr.Wrap(failureKind, stderr.String(), err)
	}
	return nil
}

// writeJSON serializes v with stable field order (Go's encoding/json
// already emits struct fields in declaration order, which is the
// deterministic-serialization contract §4.5/§4.7 require) and writes it
// to path.
func writeJSON(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
