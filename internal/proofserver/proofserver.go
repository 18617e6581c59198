// Package proofserver implements the HTTP surface that accepts a proof
// job and polls its status, grounded on original_source's
// server/handlers.rs/server/mod.rs for the envelope and status-code
// contract and on the teacher's internal/zerocash/api.go for the
// net/http.ServeMux + http.HandleFunc style.
package proofserver

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"wormcore/internal/accountproof"
	"wormcore/internal/chain"
	"wormcore/internal/commitment"
	"wormcore/internal/fp"
	"wormcore/internal/health"
	"wormcore/internal/jobqueue"
	"wormcore/internal/metrics"
	"wormcore/internal/obslog"
	"wormcore/internal/orchestration"
	"wormcore/internal/ratelimit"
	"wormcore/internal/wormerr"
)

// ProofInput is the JSON body accepted by POST /proof, matching spec.md
// §6's ProofInput exactly.
type ProofInput struct {
	Network        string                     `json:"network"`
	Amount         string                     `json:"amount"`
	BroadcasterFee string                     `json:"broadcaster_fee"`
	ProverFee      string                     `json:"prover_fee"`
	Spend          string                     `json:"spend"`
	BurnKey        string                     `json:"burn_key"`
	WalletAddress  string                     `json:"wallet_address"`
	Proof          *accountproof.AccountProof `json:"proof,omitempty"`
	BlockNumber    *string                    `json:"block_number,omitempty"`
}

// ProofOutput is the JSON result embedded in a completed job's response,
// matching spec.md §6's ProofOutput.
type ProofOutput struct {
	BurnAddress    string `json:"burn_address"`
	Proof          any    `json:"proof"`
	BlockNumber    string `json:"block_number"`
	NullifierU256  string `json:"nullifier_u256"`
	RemainingCoin  string `json:"remaining_coin"`
	BroadcasterFee string `json:"broadcaster_fee"`
	ProverFee      string `json:"prover_fee"`
	Prover         string `json:"prover"`
	RevealAmount   string `json:"reveal_amount"`
	WalletAddress  string `json:"wallet_address"`
}

// envelope is the uniform response shape every endpoint uses.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  any    `json:"result,omitempty"`
}

// Server wires the job queue to an HTTP mux. It does not itself run the
// worker goroutine — callers launch jobqueue.Worker.Run separately so the
// HTTP handlers never block on proof computation.
type Server struct {
	queue    *jobqueue.Queue
	flow     *orchestration.Flow
	health   *health.Checker
	metrics  *metrics.Collector
	limiter  *ratelimit.PerKey
	log      obslog.Logger
	networks chain.Networks
	reveal   *big.Int // reveal amount applied to every job (always 0)
}

// New builds a Server. Every job's reveal amount is fixed at 0: ProofInput
// has no reveal field and New takes no reveal argument, so a caller cannot
// choose a different value. networks is used
// only to validate a submitted ProofInput.Network against the registry
// (original_source's compute_proof step 1, NetworkUnknown); the process
// itself still talks to a single chain.Client bound at startup.
func New(queue *jobqueue.Queue, flow *orchestration.Flow, checker *health.Checker, collector *metrics.Collector, limiter *ratelimit.PerKey, networks chain.Networks, log obslog.Logger) *Server {
	return &Server{queue: queue, flow: flow, health: checker, metrics: collector, limiter: limiter, networks: networks, log: log, reveal: big.NewInt(0)}
}

// Mux builds the net/http.ServeMux for this server's routes.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/proof", s.handleProof)
	mux.HandleFunc("/proof/", s.handleProofStatus)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, wormerr.New(wormerr.BadRequest, "method not allowed"))
		return
	}

	callerKey := r.RemoteAddr
	if s.limiter != nil && !s.limiter.Allow(callerKey) {
		writeError(w, wormerr.New(wormerr.QueueFull, "rate limit exceeded"))
		return
	}

	var in ProofInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, wormerr.Wrap(wormerr.BadRequest, "decoding request body", err))
		return
	}

	params, err := s.toComputeProofParams(in)
	if err != nil {
		writeError(w, err)
		return
	}

	job, err := s.queue.Submit(params)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError(string(wormerr.KindOf(err)))
		}
		writeError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.JobsSubmitted.Inc()
		s.metrics.QueueDepth.Set(float64(s.queue.Queued()))
	}

	writeJSON(w, http.StatusOK, envelope{
		Status:  "queued",
		Message: positionMessage(job.Position),
		Result:  map[string]string{"job_id": job.ID.String()},
	})
}

func (s *Server) handleProofStatus(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Path[len("/proof/"):]
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, wormerr.Wrap(wormerr.BadRequest, "malformed job id", err))
		return
	}

	job, ok := s.queue.Get(id)
	if !ok {
		writeError(w, wormerr.New(wormerr.NotFound, "no such job"))
		return
	}

	switch job.Status {
	case jobqueue.Pending:
		writeJSON(w, http.StatusOK, envelope{Status: "pending", Message: positionMessage(job.Position)})
	case jobqueue.InProgress:
		writeJSON(w, http.StatusOK, envelope{Status: "in_progress", Message: positionMessage(1)})
	case jobqueue.Completed:
		writeJSON(w, http.StatusOK, envelope{Status: "completed", Message: "proof ready", Result: job.Result})
	case jobqueue.Failed:
		writeJSON(w, http.StatusOK, envelope{Status: "error", Message: job.Err.Error()})
	default:
		writeError(w, wormerr.New(wormerr.BadRequest, "unknown job status"))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.health.Snapshot())
}

// Run executes one job's worth of server-side proof computation; it is
// the jobqueue.RunFunc bound to this server's orchestration flow.
func (s *Server) Run(ctx context.Context, input any) (any, error) {
	params, ok := input.(orchestration.ComputeProofParams)
	if !ok {
		return nil, wormerr.New(wormerr.BadRequest, "proofserver: unexpected job input type")
	}
	if s.metrics != nil {
		s.metrics.JobsInProgress.Set(1)
		s.metrics.QueueDepth.Set(float64(s.queue.Queued()))
	}
	start := time.Now()
	result, err := s.flow.ComputeProof(ctx, params)
	if s.metrics != nil {
		s.metrics.ObserveProofDuration("proof_of_burn", time.Since(start))
		s.metrics.JobsInProgress.Set(0)
		if err != nil {
			s.metrics.RecordError(string(wormerr.KindOf(err)))
		}
	}
	if s.health != nil {
		s.health.Beat()
	}
	if err != nil {
		return nil, err
	}
	return toProofOutput(result), nil
}

func (s *Server) toComputeProofParams(in ProofInput) (orchestration.ComputeProofParams, error) {
	if _, err := s.networks.Lookup(in.Network); err != nil {
		return orchestration.ComputeProofParams{}, err
	}
	burnKey, err := fp.FromDecimalString(in.BurnKey)
	if err != nil {
		return orchestration.ComputeProofParams{}, wormerr.Wrap(wormerr.InvalidBurnKey, in.BurnKey, err)
	}
	amount, err := parseBigInt(in.Amount, "amount")
	if err != nil {
		return orchestration.ComputeProofParams{}, err
	}
	broadcasterFee, err := parseBigInt(in.BroadcasterFee, "broadcaster_fee")
	if err != nil {
		return orchestration.ComputeProofParams{}, err
	}
	proverFee, err := parseBigInt(in.ProverFee, "prover_fee")
	if err != nil {
		return orchestration.ComputeProofParams{}, err
	}
	spend, err := parseBigInt(in.Spend, "spend")
	if err != nil {
		return orchestration.ComputeProofParams{}, err
	}
	receiver, err := parseAddress(in.WalletAddress)
	if err != nil {
		return orchestration.ComputeProofParams{}, err
	}

	params := orchestration.ComputeProofParams{
		BurnKey:        burnKey,
		Network:        in.Network,
		Amount:         amount,
		ProverFee:      proverFee,
		BroadcasterFee: broadcasterFee,
		Spend:          spend,
		Reveal:         s.reveal,
		Receiver:       receiver,
		Prover:         receiver,
	}

	if in.Proof != nil && in.BlockNumber != nil {
		blockNumber, err := parseBigInt(*in.BlockNumber, "block_number")
		if err != nil {
			return orchestration.ComputeProofParams{}, err
		}
		params.SuppliedProof = in.Proof
		params.BlockNumber = blockNumber
	} else if in.Proof != nil || in.BlockNumber != nil {
		return orchestration.ComputeProofParams{}, wormerr.New(wormerr.BadRequest, "proof and block_number must both be supplied or both omitted")
	}

	return params, nil
}

func toProofOutput(r orchestration.ComputeProofResult) ProofOutput {
	return ProofOutput{
		BurnAddress:    addressHex(r.BurnAddress),
		Proof:          r.Proof,
		BlockNumber:    bigIntString(r.BlockNumber),
		NullifierU256:  r.Nullifier.String(),
		RemainingCoin:  r.RemainingCoin.String(),
		BroadcasterFee: bigIntString(r.BroadcasterFee),
		ProverFee:      bigIntString(r.ProverFee),
		Prover:         addressHex(r.Prover),
		RevealAmount:   bigIntString(r.RevealAmount),
		WalletAddress:  addressHex(r.Prover),
	}
}

func positionMessage(position int) string {
	if position <= 1 {
		return "position #1"
	}
	return "position #" + strconv.Itoa(position)
}

func parseBigInt(s, field string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, wormerr.New(wormerr.BadRequest, "invalid integer for "+field)
	}
	return v, nil
}

func parseAddress(s string) (commitment.Address, error) {
	var addr commitment.Address
	if !common.IsHexAddress(s) {
		return addr, wormerr.New(wormerr.InvalidAddress, s)
	}
	copy(addr[:], common.HexToAddress(s).Bytes())
	return addr, nil
}

func bigIntString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func addressHex(a commitment.Address) string {
	return common.BytesToAddress(a[:]).Hex()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := wormerr.KindOf(err)
	status := wormerr.HTTPStatus(kind)
	writeJSON(w, status, envelope{Status: "error", Message: err.Error()})
}
