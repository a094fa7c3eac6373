package chain

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// unionABI is the superset of every method and event spelling the deployed
// chit-fund variants expose. A deployment that only implements a subset is
// handled by probing which names are present (see probeMethods).
const unionABI = `[
  {"type":"function","name":"joinGroup","stateMutability":"payable","inputs":[],"outputs":[]},
  {"type":"function","name":"contribute","stateMutability":"payable","inputs":[],"outputs":[]},
  {"type":"function","name":"selectBorrower","stateMutability":"nonpayable","inputs":[{"name":"borrower","type":"address"}],"outputs":[]},
  {"type":"function","name":"releaseFund","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"payEMI","stateMutability":"payable","inputs":[],"outputs":[]},
  {"type":"function","name":"withdrawProfit","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"withdrawPartialProfit","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"getEMI","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getEMIinINR","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"remainingMonths","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getPoolBalance","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getPoolInINR","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getMemberShareInINR","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getMembers","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
  {"type":"event","name":"MemberJoined","inputs":[{"name":"member","type":"address","indexed":true}],"anonymous":false},
  {"type":"event","name":"BorrowerSelected","inputs":[{"name":"borrower","type":"address","indexed":true}],"anonymous":false},
  {"type":"event","name":"LoanReleased","inputs":[{"name":"borrower","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"EMIPaid","inputs":[{"name":"payer","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},{"name":"installment","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"ProfitWithdrawn","inputs":[{"name":"member","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}],"anonymous":false}
]`

// loadABI parses the contract interface, from an override file when given.
func loadABI(path string) (abi.ABI, error) {
	if path == "" {
		return abi.JSON(strings.NewReader(unionABI))
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("read abi: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(string(raw)))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse abi %s: %w", path, err)
	}
	return parsed, nil
}

// methodNames holds the spellings the bound interface actually exposes.
// Empty means the deployment has no such view.
type methodNames struct {
	pool            string // getPoolBalance | totalPool
	release         string // releaseFund | releaseFunds
	withdrawAll     string // withdrawProfit | withdrawAllProfit
	withdrawPartial string
	contribute      string
	emi             string
	emiINR          string
	months          string
	poolINR         string
	shareINR        string
	members         string
}

// probeMethods reconciles the divergent per-variant names behind one
// accessor set, preferring the more explicit spelling when both exist.
func probeMethods(a abi.ABI) methodNames {
	return methodNames{
		pool:            pick(a, "getPoolBalance", "totalPool"),
		release:         pick(a, "releaseFund", "releaseFunds"),
		withdrawAll:     pick(a, "withdrawProfit", "withdrawAllProfit"),
		withdrawPartial: pick(a, "withdrawPartialProfit"),
		contribute:      pick(a, "contribute"),
		emi:             pick(a, "getEMI"),
		emiINR:          pick(a, "getEMIinINR"),
		months:          pick(a, "remainingMonths"),
		poolINR:         pick(a, "getPoolInINR"),
		shareINR:        pick(a, "getMemberShareInINR"),
		members:         pick(a, "getMembers"),
	}
}

func pick(a abi.ABI, candidates ...string) string {
	for _, name := range candidates {
		if _, ok := a.Methods[name]; ok {
			return name
		}
	}
	return ""
}
