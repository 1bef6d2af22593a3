package state_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func ifErrFailNow(t *testing.T, err error) {
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

// fakeFetcher returns canned chains for known hosts.
type fakeFetcher struct {
	chains map[peer.Peer]database.ChainData
	errs   map[peer.Peer]error
}

func (f fakeFetcher) FetchChain(ctx context.Context, pr peer.Peer) (database.ChainData, error) {
	if err, exists := f.errs[pr]; exists {
		return database.ChainData{}, err
	}

	cd, exists := f.chains[pr]
	if !exists {
		return database.ChainData{}, state.ErrPeerUnreachable
	}

	return cd, nil
}

// funcFetcher adapts a function to the Fetcher interface.
type funcFetcher func(ctx context.Context, pr peer.Peer) (database.ChainData, error)

func (f funcFetcher) FetchChain(ctx context.Context, pr peer.Peer) (database.ChainData, error) {
	return f(ctx, pr)
}

// fakeWorker records the signals it receives.
type fakeWorker struct {
	mining int
	cancel int
}

func (w *fakeWorker) Shutdown()           {}
func (w *fakeWorker) SignalStartMining()  { w.mining++ }
func (w *fakeWorker) SignalCancelMining() { w.cancel++ }
func (w *fakeWorker) SignalResolve()      {}

func newState(t *testing.T, nodeID string, host string, fetcher state.Fetcher) *state.State {
	s, err := state.New(state.Config{
		NodeID:  nodeID,
		Host:    host,
		Fetcher: fetcher,
	})
	ifErrFailNow(t, err)

	return s
}

// minedChain builds a valid chain with the specified number of mined blocks
// after genesis.
func minedChain(t *testing.T, nodeID string, blocks int) database.ChainData {
	s := newState(t, nodeID, "", nil)

	for i := 0; i < blocks; i++ {
		s.SubmitTransaction(database.NewTx("A", "B", uint64(i+1)))
		if _, err := s.MineNewBlock(context.Background()); err != nil {
			t.Fatalf("\t%s\tShould be able to mine block %d : %s", failed, i+2, err)
		}
	}

	return database.NewChainData(s.RetrieveChain())
}

// =============================================================================

func Test_SubmitAndMine(t *testing.T) {
	t.Log("Given the need to submit transactions and mine them into a block.")
	{
		st := newState(t, "miner", "localhost:9080", nil)
		wrk := fakeWorker{}
		st.Worker = &wrk

		index := st.SubmitTransaction(database.NewTx("A", "B", 10))
		if index != 2 {
			t.Fatalf("\t%s\tShould get index 2 for the next block : got %d", failed, index)
		}
		t.Logf("\t%s\tShould get index 2 for the next block.", success)

		if wrk.mining != 0 {
			t.Fatalf("\t%s\tShould not signal mining without auto mine : got %d", failed, wrk.mining)
		}
		t.Logf("\t%s\tShould not signal mining without auto mine.", success)

		block, err := st.MineNewBlock(context.Background())
		ifErrFailNow(t, err)

		if block.Index != 2 {
			t.Fatalf("\t%s\tShould seal block 2 : got %d", failed, block.Index)
		}
		t.Logf("\t%s\tShould seal block 2.", success)

		exp := []database.Tx{
			database.NewTx("0", "miner", 1),
			database.NewTx("A", "B", 10),
		}
		if len(block.Transactions) != len(exp) {
			t.Fatalf("\t%s\tShould have %d transactions : got %d", failed, len(exp), len(block.Transactions))
		}
		for i := range exp {
			if block.Transactions[i] != exp[i] {
				t.Fatalf("\t%s\tShould have transaction %s at %d : got %s", failed, exp[i], i, block.Transactions[i])
			}
		}
		t.Logf("\t%s\tShould have the reward followed by the pending transaction.", success)

		if pending := st.RetrievePending(); len(pending) != 0 {
			t.Fatalf("\t%s\tShould have an empty pending buffer : got %d", failed, len(pending))
		}
		t.Logf("\t%s\tShould have an empty pending buffer.", success)

		chain := st.RetrieveChain()
		if err := database.ValidateChain(chain, nil); err != nil {
			t.Fatalf("\t%s\tShould have a valid chain : %s", failed, err)
		}
		t.Logf("\t%s\tShould have a valid chain.", success)

		if status := st.RetrieveStatus(); status.Length != 2 || status.LatestBlockHash != block.Hash() {
			t.Fatalf("\t%s\tShould report the new block in the status : got %+v", failed, status)
		}
		t.Logf("\t%s\tShould report the new block in the status.", success)
	}
}

func Test_AutoMine(t *testing.T) {
	t.Log("Given the need to mine automatically when transactions arrive.")
	{
		st, err := state.New(state.Config{
			NodeID:   "miner",
			AutoMine: true,
		})
		ifErrFailNow(t, err)

		st.SubmitTransaction(database.NewTx("A", "B", 10))

		wrk := fakeWorker{}
		st.Worker = &wrk

		st.SubmitTransaction(database.NewTx("A", "B", 11))
		if wrk.mining != 1 {
			t.Fatalf("\t%s\tShould signal the worker once : got %d", failed, wrk.mining)
		}
		t.Logf("\t%s\tShould signal the worker when one is running.", success)
	}
}

func Test_MineCancel(t *testing.T) {
	t.Log("Given the need to cancel mining.")
	{
		st := newState(t, "miner", "", nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := st.MineNewBlock(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("\t%s\tShould get a cancel error : got %v", failed, err)
		}
		t.Logf("\t%s\tShould get a cancel error.", success)

		if length := len(st.RetrieveChain()); length != 1 {
			t.Fatalf("\t%s\tShould leave the chain untouched : got length %d", failed, length)
		}
		t.Logf("\t%s\tShould leave the chain untouched.", success)
	}
}

func Test_RegisterPeers(t *testing.T) {
	type table struct {
		name      string
		addresses []string
		exp       []string
		err       bool
	}

	tt := []table{
		{"urls", []string{"http://192.168.0.5:5000", "192.168.0.6:5000"}, []string{"192.168.0.5:5000", "192.168.0.6:5000"}, false},
		{"duplicate", []string{"http://192.168.0.5:5000/", "192.168.0.5:5000"}, []string{"192.168.0.5:5000"}, false},
		{"self", []string{"localhost:9080", "192.168.0.5:5000"}, []string{"192.168.0.5:5000"}, false},
		{"invalid", []string{"192.168.0.5:5000", "http://"}, nil, true},
	}

	t.Log("Given the need to register peer addresses.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				st := newState(t, "miner", "localhost:9080", nil)

				peers, err := st.RegisterPeers(tst.addresses)
				if tst.err {
					if !errors.Is(err, peer.ErrInvalidAddress) {
						t.Fatalf("\t%s\tTest %d:\tShould get an invalid address error : got %v", failed, testID, err)
					}
					if known := st.RetrieveKnownPeers(); len(known) != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould not register any peer : got %v", failed, testID, known)
					}
					t.Logf("\t%s\tTest %d:\tShould reject the request without registering.", success, testID)
					return
				}
				ifErrFailNow(t, err)

				if len(peers) != len(tst.exp) {
					t.Fatalf("\t%s\tTest %d:\tShould have %d peers : got %v", failed, testID, len(tst.exp), peers)
				}
				for i, host := range tst.exp {
					if peers[i].Host != host {
						t.Fatalf("\t%s\tTest %d:\tShould have peer %s at %d : got %s", failed, testID, host, i, peers[i])
					}
				}
				t.Logf("\t%s\tTest %d:\tShould have the expected peers.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

// =============================================================================

func Test_ResolveReplace(t *testing.T) {
	t.Log("Given the need to adopt a longer valid chain from a peer.")
	{
		peerB := peer.New("nodeb:9080")
		cdB := minedChain(t, "nodeb", 2)

		st := newState(t, "nodea", "nodea:9080", fakeFetcher{
			chains: map[peer.Peer]database.ChainData{peerB: cdB},
		})
		wrk := fakeWorker{}
		st.Worker = &wrk
		st.AddKnownPeer(peerB)

		st.SubmitTransaction(database.NewTx("C", "D", 5))

		res, err := st.Resolve(context.Background())
		ifErrFailNow(t, err)

		if !res.Replaced {
			t.Fatalf("\t%s\tShould replace the chain : outcomes %+v", failed, res.Outcomes)
		}
		t.Logf("\t%s\tShould replace the chain.", success)

		chain := st.RetrieveChain()
		if len(chain) != 3 || chain[2].Hash() != cdB.Chain[2].Hash() {
			t.Fatalf("\t%s\tShould hold the chain of the peer : got length %d", failed, len(chain))
		}
		t.Logf("\t%s\tShould hold the chain of the peer.", success)

		if res.Outcomes[0].Status != state.OutcomeAdopted {
			t.Fatalf("\t%s\tShould mark the peer as adopted : got %s", failed, res.Outcomes[0].Status)
		}
		t.Logf("\t%s\tShould mark the peer as adopted.", success)

		if wrk.cancel != 1 {
			t.Fatalf("\t%s\tShould cancel mining once : got %d", failed, wrk.cancel)
		}
		t.Logf("\t%s\tShould cancel mining.", success)

		if pending := st.RetrievePending(); len(pending) != 1 {
			t.Fatalf("\t%s\tShould keep the pending buffer : got %d", failed, len(pending))
		}
		t.Logf("\t%s\tShould keep the pending buffer.", success)

		res, err = st.Resolve(context.Background())
		ifErrFailNow(t, err)

		if res.Replaced || res.Outcomes[0].Status != state.OutcomeNotLonger {
			t.Fatalf("\t%s\tShould be authoritative on a second run : got %+v", failed, res.Outcomes)
		}
		t.Logf("\t%s\tShould be authoritative on a second run.", success)
	}
}

func Test_ResolveSkip(t *testing.T) {
	cd := minedChain(t, "nodeb", 2)
	tie := minedChain(t, "nodec", 2)

	var tamperedBlocks []database.Block
	ifErrFailNow(t, remarshal(cd.Chain, &tamperedBlocks))
	tamperedBlocks[1].Transactions[1].Amount = 500
	tampered := database.NewChainData(tamperedBlocks)

	badLength := database.NewChainData(cd.Chain)
	badLength.Length = 10

	type table struct {
		name     string
		chains   []database.ChainData
		errs     map[int]error
		replaced bool
		adopted  int
		exp      []string
	}

	tt := []table{
		{"invalid", []database.ChainData{tampered}, nil, false, -1, []string{state.OutcomeInvalid}},
		{"unreachable", []database.ChainData{{}, cd}, map[int]error{0: state.ErrPeerUnreachable}, true, 1, []string{state.OutcomeUnreachable, state.OutcomeAdopted}},
		{"length", []database.ChainData{badLength}, nil, false, -1, []string{state.OutcomePeerError}},
		{"tie", []database.ChainData{cd, tie}, nil, true, 0, []string{state.OutcomeAdopted, state.OutcomeCandidate}},
		{"invalid-then-valid", []database.ChainData{tampered, tie}, nil, true, 1, []string{state.OutcomeInvalid, state.OutcomeAdopted}},
	}

	t.Log("Given the need to skip peers that can't win.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				ff := fakeFetcher{
					chains: make(map[peer.Peer]database.ChainData),
					errs:   make(map[peer.Peer]error),
				}

				var peers []peer.Peer
				for i, cd := range tst.chains {
					pr := peer.New("node" + string(rune('b'+i)) + ":9080")
					peers = append(peers, pr)
					ff.chains[pr] = cd
					if err, exists := tst.errs[i]; exists {
						ff.errs[pr] = err
					}
				}

				st := newState(t, "nodea", "nodea:9080", ff)
				for _, pr := range peers {
					st.AddKnownPeer(pr)
				}
				before := st.RetrieveChain()

				res, err := st.Resolve(context.Background())
				ifErrFailNow(t, err)

				if res.Replaced != tst.replaced {
					t.Fatalf("\t%s\tTest %d:\tShould get replaced %v : got %v", failed, testID, tst.replaced, res.Replaced)
				}
				t.Logf("\t%s\tTest %d:\tShould get replaced %v.", success, testID, tst.replaced)

				for i, status := range tst.exp {
					if res.Outcomes[i].Status != status {
						t.Fatalf("\t%s\tTest %d:\tShould get status %s for peer %d : got %s", failed, testID, status, i, res.Outcomes[i].Status)
					}
				}
				t.Logf("\t%s\tTest %d:\tShould get the expected outcomes.", success, testID)

				chain := st.RetrieveChain()
				switch {
				case tst.replaced:
					exp := tst.chains[tst.adopted].Chain
					if chain[len(chain)-1].Hash() != exp[len(exp)-1].Hash() {
						t.Fatalf("\t%s\tTest %d:\tShould adopt the chain from peer %d.", failed, testID, tst.adopted)
					}
					t.Logf("\t%s\tTest %d:\tShould adopt the chain from peer %d.", success, testID, tst.adopted)

				default:
					if len(chain) != len(before) || chain[0].Hash() != before[0].Hash() {
						t.Fatalf("\t%s\tTest %d:\tShould keep the local chain.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould keep the local chain.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_HTTPFetcher(t *testing.T) {
	t.Log("Given the need to fetch chains from peers over HTTP.")
	{
		cd := minedChain(t, "nodeb", 1)

		mux := http.NewServeMux()
		mux.HandleFunc("/v1/node/chain", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(cd)
		})
		mux.HandleFunc("/v1/slow/v1/node/chain", func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})

		srv := httptest.NewServer(mux)
		defer srv.Close()

		host := strings.TrimPrefix(srv.URL, "http://")

		t.Logf("\tTest 0:\tWhen fetching from a healthy peer.")
		{
			st, err := state.New(state.Config{
				NodeID:  "nodea",
				Host:    "nodea:9080",
				Fetcher: state.NewHTTPFetcher(srv.Client(), 0),
			})
			ifErrFailNow(t, err)
			st.AddKnownPeer(peer.New(host))

			res, err := st.Resolve(context.Background())
			ifErrFailNow(t, err)

			if !res.Replaced || len(res.Chain) != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould adopt the peer chain : got %+v", failed, res.Outcomes)
			}
			t.Logf("\t%s\tTest 0:\tShould adopt the peer chain.", success)
		}

		t.Logf("\tTest 1:\tWhen fetching from a peer that does not answer in time.")
		{
			st, err := state.New(state.Config{
				NodeID:      "nodea",
				Host:        "nodea:9080",
				Fetcher:     state.NewHTTPFetcher(srv.Client(), 0),
				PeerTimeout: 50 * time.Millisecond,
			})
			ifErrFailNow(t, err)

			// The path prefix routes the request to the slow handler.
			st.AddKnownPeer(peer.New(host + "/v1/slow"))

			res, err := st.Resolve(context.Background())
			ifErrFailNow(t, err)

			if res.Replaced || res.Outcomes[0].Status != state.OutcomeUnreachable {
				t.Fatalf("\t%s\tTest 1:\tShould skip the peer as unreachable : got %+v", failed, res.Outcomes)
			}
			t.Logf("\t%s\tTest 1:\tShould skip the peer as unreachable.", success)
		}

		t.Logf("\tTest 2:\tWhen the peer responds with an error.")
		{
			st, err := state.New(state.Config{
				NodeID:  "nodea",
				Host:    "nodea:9080",
				Fetcher: state.NewHTTPFetcher(srv.Client(), 0),
			})
			ifErrFailNow(t, err)
			st.AddKnownPeer(peer.New(host + "/missing"))

			res, err := st.Resolve(context.Background())
			ifErrFailNow(t, err)

			if res.Replaced || !errors.Is(res.Outcomes[0].Err, state.ErrPeerResponse) {
				t.Fatalf("\t%s\tTest 2:\tShould record a peer error : got %+v", failed, res.Outcomes)
			}
			t.Logf("\t%s\tTest 2:\tShould record a peer error.", success)
		}

		t.Logf("\tTest 3:\tWhen the peer response is larger than allowed.")
		{
			st, err := state.New(state.Config{
				NodeID:  "nodea",
				Host:    "nodea:9080",
				Fetcher: state.NewHTTPFetcher(srv.Client(), 64),
			})
			ifErrFailNow(t, err)
			st.AddKnownPeer(peer.New(host))

			res, err := st.Resolve(context.Background())
			ifErrFailNow(t, err)

			if res.Replaced || !errors.Is(res.Outcomes[0].Err, state.ErrPeerResponse) {
				t.Fatalf("\t%s\tTest 3:\tShould reject the oversized response : got %+v", failed, res.Outcomes)
			}
			t.Logf("\t%s\tTest 3:\tShould reject the oversized response.", success)

			if length := len(st.RetrieveChain()); length != 1 {
				t.Fatalf("\t%s\tTest 3:\tShould keep the local chain : got length %d", failed, length)
			}
			t.Logf("\t%s\tTest 3:\tShould keep the local chain.", success)
		}
	}
}

func Test_MineLateTransaction(t *testing.T) {
	t.Log("Given the need to seal transactions that arrive while solving.")
	{
		var st *state.State
		var submitted bool

		ev := func(v string, args ...any) {
			if strings.HasPrefix(v, "pow: Solve: MINING: started") && !submitted {
				submitted = true
				st.SubmitTransaction(database.NewTx("late", "x", 1))
			}
		}

		var err error
		st, err = state.New(state.Config{
			NodeID:    "miner",
			EvHandler: ev,
		})
		ifErrFailNow(t, err)

		block, err := st.MineNewBlock(context.Background())
		ifErrFailNow(t, err)

		exp := []database.Tx{
			database.NewTx("0", "miner", 1),
			database.NewTx("late", "x", 1),
		}
		if len(block.Transactions) != len(exp) || block.Transactions[0] != exp[0] || block.Transactions[1] != exp[1] {
			t.Fatalf("\t%s\tShould seal the reward and the late transaction : got %v", failed, block.Transactions)
		}
		t.Logf("\t%s\tShould seal the reward and the late transaction.", success)

		if pending := st.RetrievePending(); len(pending) != 0 {
			t.Fatalf("\t%s\tShould have an empty pending buffer : got %d", failed, len(pending))
		}
		t.Logf("\t%s\tShould have an empty pending buffer.", success)
	}
}

func Test_MineStaleTip(t *testing.T) {
	t.Log("Given the need to solve again when the chain grows during a search.")
	{
		var st *state.State
		var overtaken bool
		var nested database.Block
		var nestedErr error
		var solvedAgain bool

		ev := func(v string, args ...any) {
			switch {
			case strings.HasPrefix(v, "pow: Solve: MINING: started"):

				// The first search is overtaken by a block mined underneath it.
				if !overtaken {
					overtaken = true
					nested, nestedErr = st.MineNewBlock(context.Background())
				}

			case strings.Contains(v, "solving again"):
				solvedAgain = true
			}
		}

		var err error
		st, err = state.New(state.Config{
			NodeID:    "miner",
			EvHandler: ev,
		})
		ifErrFailNow(t, err)

		block, err := st.MineNewBlock(context.Background())
		ifErrFailNow(t, err)
		ifErrFailNow(t, nestedErr)

		if !solvedAgain {
			t.Fatalf("\t%s\tShould detect the stale tip and solve again.", failed)
		}
		t.Logf("\t%s\tShould detect the stale tip and solve again.", success)

		if nested.Index != 2 || block.Index != 3 {
			t.Fatalf("\t%s\tShould seal on top of the new tip : got blocks %d and %d", failed, nested.Index, block.Index)
		}
		if block.PreviousHash != nested.Hash() {
			t.Fatalf("\t%s\tShould link to the new tip : got %s, exp %s", failed, block.PreviousHash, nested.Hash())
		}
		t.Logf("\t%s\tShould seal on top of the new tip.", success)

		chain := st.RetrieveChain()
		if len(chain) != 3 {
			t.Fatalf("\t%s\tShould have three blocks : got %d", failed, len(chain))
		}
		if err := database.ValidateChain(chain, nil); err != nil {
			t.Fatalf("\t%s\tShould have a valid chain : %s", failed, err)
		}
		t.Logf("\t%s\tShould have a valid chain.", success)
	}
}

func Test_ResolveLocalGrowth(t *testing.T) {
	t.Log("Given the need to drop a candidate when the local chain grows during resolution.")
	{
		peerB := peer.New("nodeb:9080")
		cdB := minedChain(t, "nodeb", 2)

		var st *state.State
		var mineErr error
		fetcher := funcFetcher(func(ctx context.Context, pr peer.Peer) (database.ChainData, error) {
			for i := 0; i < 2 && mineErr == nil; i++ {
				_, mineErr = st.MineNewBlock(ctx)
			}
			return cdB, nil
		})

		st = newState(t, "nodea", "nodea:9080", fetcher)
		wrk := fakeWorker{}
		st.Worker = &wrk
		st.AddKnownPeer(peerB)

		res, err := st.Resolve(context.Background())
		ifErrFailNow(t, err)
		ifErrFailNow(t, mineErr)

		if res.Replaced {
			t.Fatalf("\t%s\tShould leave the chain unchanged.", failed)
		}
		t.Logf("\t%s\tShould leave the chain unchanged.", success)

		chain := st.RetrieveChain()
		if len(chain) != 3 || chain[2].Hash() == cdB.Chain[2].Hash() {
			t.Fatalf("\t%s\tShould keep the locally mined blocks : got length %d", failed, len(chain))
		}
		if chain[2].Transactions[0].Recipient != "nodea" {
			t.Fatalf("\t%s\tShould keep the locally mined blocks : got reward for %s", failed, chain[2].Transactions[0].Recipient)
		}
		t.Logf("\t%s\tShould keep the locally mined blocks.", success)

		if wrk.cancel != 0 {
			t.Fatalf("\t%s\tShould not cancel mining : got %d", failed, wrk.cancel)
		}
		t.Logf("\t%s\tShould not cancel mining.", success)
	}
}

func Test_GenesisDefaults(t *testing.T) {
	date := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	type table struct {
		name      string
		gen       genesis.Genesis
		prevHash  string
		proof     uint64
		timestamp int64
	}

	tt := []table{
		{"date-only", genesis.Genesis{Date: date}, "1", 100, date.UnixNano()},
		{"configured", genesis.Genesis{Date: date, PreviousHash: "abc", Proof: 7, MiningReward: 2, RewardSender: "0"}, "abc", 7, date.UnixNano()},
	}

	t.Log("Given the need to start a chain from partial genesis settings.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				st, err := state.New(state.Config{
					NodeID:  "miner",
					Genesis: tst.gen,
				})
				ifErrFailNow(t, err)

				gb := st.RetrieveChain()[0]
				if gb.PreviousHash != tst.prevHash || gb.Proof != tst.proof || gb.Timestamp != tst.timestamp {
					t.Fatalf("\t%s\tTest %d:\tShould build the expected genesis block : got %+v", failed, testID, gb)
				}
				t.Logf("\t%s\tTest %d:\tShould build the expected genesis block.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

// remarshal deep copies a value through its JSON encoding, the way a chain
// arrives from a peer.
func remarshal(src any, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
