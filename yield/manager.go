// Copyright (c) 2020 - for information on the respective copyright owner
// see the NOTICE file and/or the repository at
// https://github.com/hyperledger-labs/web3-node
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package yield

import (
	"context"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/log"
)

// ArgNameRiskTolerance is the argument name used in errors for an invalid
// risk tolerance.
const ArgNameRiskTolerance web3.ArgumentName = "riskTolerance"

// Manager answers queries over the pools of a source.
type Manager struct {
	log.Logger
	source Source
}

// NewManager returns a manager over the given source.
func NewManager(source Source) *Manager {
	return &Manager{
		Logger: log.NewLoggerWithField("component", "yield"),
		source: source,
	}
}

// Pools returns all pools on the chain.
func (m *Manager) Pools(ctx context.Context, chainID uint64) ([]Pool, error) {
	return m.source.Pools(ctx, chainID)
}

// OptimalYield returns the pools on the chain with a risk score not above the
// tolerance and a positive APY, ordered by APY per unit of risk, highest
// first. Pools with the same ratio keep the order of the source.
func (m *Manager) OptimalYield(ctx context.Context, chainID uint64, riskTolerance int) ([]Pool, error) {
	if riskTolerance < MinRiskScore || riskTolerance > MaxRiskScore {
		return nil, web3.NewAPIErrInvalidArgument(
			errors.Errorf("should be in range [%d, %d]", MinRiskScore, MaxRiskScore),
			ArgNameRiskTolerance, strconv.Itoa(riskTolerance))
	}
	pools, err := m.source.Pools(ctx, chainID)
	if err != nil {
		m.WithError(err).WithField("chain", chainID).Error("Reading pools")
		return nil, err
	}

	type ranked struct {
		pool  Pool
		ratio decimal.Decimal
	}
	var suitable []ranked
	for _, p := range pools {
		if p.RiskScore > riskTolerance || p.RiskScore < MinRiskScore || p.APY <= 0 {
			continue
		}
		ratio := decimal.NewFromFloat(p.APY).Div(decimal.NewFromInt(int64(p.RiskScore)))
		suitable = append(suitable, ranked{pool: p, ratio: ratio})
	}
	sort.SliceStable(suitable, func(i, j int) bool {
		return suitable[i].ratio.GreaterThan(suitable[j].ratio)
	})

	result := make([]Pool, len(suitable))
	for i := range suitable {
		result[i] = suitable[i].pool
	}
	return result, nil
}
