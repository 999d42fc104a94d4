// Package css inspects stylesheets which are embedded into produced pages.
package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Summary describes a stylesheet.
type Summary struct {
	// Rules is the number of rulesets, including ones nested in @-rule blocks.
	Rules int
	// Selectors lists selectors of all rulesets in order of appearance.
	Selectors []string
	// Imports lists @import targets. Pages are self-contained, so these are
	// left for the browser to resolve.
	Imports []string
	// Problems holds syntax errors parser was able to recover from.
	Problems []string
	// Err is set when parsing stopped before the end of input.
	Err error
}

// Checker parses stylesheets and reports what it finds.
type Checker struct {
	log *zap.Logger
}

// NewChecker creates a new stylesheet checker.
func NewChecker(log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{log: log.Named("css")}
}

// Check parses the stylesheet. Source identifies it in the log.
func (c *Checker) Check(data []byte, source string) Summary {
	var sum Summary

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if parser.HasParseError() {
				sum.Problems = append(sum.Problems, describeProblem(parser.Err(), string(data)+joinTokens(parser.Values())))
				continue
			}
			// lexer stopped: end of input or read failure
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				sum.Err = err
			}
			c.log.Debug("Stylesheet checked", zap.String("source", source),
				zap.Int("rules", sum.Rules), zap.Int("imports", len(sum.Imports)), zap.Int("problems", len(sum.Problems)))
			return sum

		case css.AtRuleGrammar:
			if string(data) == "@import" {
				if url := extractImportURL(parser.Values()); url != "" {
					sum.Imports = append(sum.Imports, url)
				}
			}

		case css.BeginRulesetGrammar, css.QualifiedRuleGrammar:
			sum.Rules++
			sum.Selectors = append(sum.Selectors, splitSelectors(string(data)+joinTokens(parser.Values()))...)
		}
	}
}

// describeProblem combines parser message with the text parser skipped.
func describeProblem(err error, skipped string) string {
	msg := "syntax error"
	var perr *parse.Error
	if errors.As(err, &perr) {
		msg = fmt.Sprintf("%s (line %d, column %d)", perr.Message, perr.Line, perr.Column)
	}
	if skipped = strings.TrimSpace(skipped); skipped != "" {
		msg += ": " + skipped
	}
	return msg
}

func joinTokens(values []css.Token) string {
	var sb strings.Builder
	for _, v := range values {
		sb.Write(v.Data)
	}
	return sb.String()
}

// splitSelectors splits grouped selectors.
func splitSelectors(s string) []string {
	var selectors []string
	for sel := range strings.SplitSeq(s, ",") {
		if sel = strings.TrimSpace(sel); sel != "" {
			selectors = append(selectors, sel)
		}
	}
	return selectors
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			s := strings.TrimSuffix(strings.TrimPrefix(string(t.Data), "url("), ")")
			return unquote(s)
		}
	}
	return ""
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
