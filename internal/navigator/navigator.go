// Copyright 2024 Saudi Government Services Navigator Project
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

// Package navigator orchestrates the query pipeline: language detection,
// prompt construction, intent resolution and response composition.
package navigator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/catalog"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/language"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/prompt"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/resolver"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/respond"
)

// Answer is the complete outcome of one processed query.
type Answer struct {
	Query    string
	Language language.Lang
	Result   resolver.MatchResult
	Payload  respond.Payload
	Elapsed  time.Duration
}

// Navigator runs queries through the pipeline. It holds no per-query state
// and the catalog is read-only, so a single Navigator serves concurrent
// sessions without synchronization.
type Navigator struct {
	catalog  *catalog.Catalog
	detector *language.Detector
	resolver *resolver.Resolver
	logger   *zap.Logger
}

// New creates a navigator over an already-loaded catalog.
func New(cat *catalog.Catalog, detector *language.Detector, res *resolver.Resolver, logger *zap.Logger) *Navigator {
	return &Navigator{
		catalog:  cat,
		detector: detector,
		resolver: res,
		logger:   logger,
	}
}

// Catalog returns the catalog the navigator answers from.
func (n *Navigator) Catalog() *catalog.Catalog {
	return n.catalog
}

// ProcessQuery runs one query through detect -> build -> resolve -> compose.
// Every outcome, including an engine failure, produces a renderable payload;
// the process never dies on a single bad query or bad model output.
func (n *Navigator) ProcessQuery(ctx context.Context, query string) Answer {
	start := time.Now()

	lang := n.detector.Detect(query)
	p := prompt.Build(query, lang, n.catalog)
	result := n.resolver.Resolve(ctx, p, lang, n.catalog)
	payload := respond.Compose(result, lang, n.catalog)

	elapsed := time.Since(start)

	n.logger.Info("Processed query",
		zap.String("language", string(lang)),
		zap.String("outcome", string(payload.Kind)),
		zap.Strings("matched_keys", result.Keys),
		zap.Duration("elapsed", elapsed),
	)

	return Answer{
		Query:    query,
		Language: lang,
		Result:   result,
		Payload:  payload,
		Elapsed:  elapsed,
	}
}
