package core

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

type senderGlob struct {
	pattern string
	re      *regexp.Regexp
}

// senderList holds one normalized allow/deny list. Exact and domain-wildcard
// entries are set lookups; general glob patterns are precompiled.
type senderList struct {
	exact map[string]struct{}
	globs []senderGlob
}

func newSenderList(items []string, logger *zap.Logger) *senderList {
	l := &senderList{
		exact: make(map[string]struct{}, len(items)),
	}
	for _, raw := range items {
		item := strings.ToLower(strings.TrimSpace(raw))
		if item == "" {
			continue
		}
		l.exact[item] = struct{}{}
		if strings.Contains(item, "*") {
			quoted := regexp.QuoteMeta(item)
			re, err := regexp.Compile("(?i)^" + strings.ReplaceAll(quoted, `\*`, ".*") + "$")
			if err != nil {
				logger.Warn("skipping unusable sender pattern",
					zap.String("pattern", item), zap.Error(err))
				continue
			}
			l.globs = append(l.globs, senderGlob{pattern: item, re: re})
		}
	}
	return l
}

// contains checks an address in match order: exact, *@domain, then glob
func (l *senderList) contains(address string) bool {
	if _, ok := l.exact[address]; ok {
		return true
	}
	if _, ok := l.exact["*@"+extractDomain(address)]; ok {
		return true
	}
	for _, g := range l.globs {
		if g.re.MatchString(address) {
			return true
		}
	}
	return false
}

func extractDomain(address string) string {
	if i := strings.Index(address, "@"); i >= 0 {
		return address[i+1:]
	}
	return address
}

// SenderPolicy resolves a sender address against the configured whitelist
// and blacklist. The whitelist strictly dominates.
type SenderPolicy struct {
	whitelist *senderList
	blacklist *senderList
	logger    *zap.Logger
}

// NewSenderPolicy creates a sender policy from the configured lists
func NewSenderPolicy(whitelisted, blacklisted []string, logger *zap.Logger) *SenderPolicy {
	p := &SenderPolicy{
		whitelist: newSenderList(whitelisted, logger),
		blacklist: newSenderList(blacklisted, logger),
		logger:    logger,
	}
	logger.Info("loaded sender lists",
		zap.Int("whitelisted", len(p.whitelist.exact)),
		zap.Int("blacklisted", len(p.blacklist.exact)))
	return p
}

// Status classifies an address as whitelisted, blacklisted or neutral
func (p *SenderPolicy) Status(address string) SenderStatus {
	address = strings.ToLower(strings.TrimSpace(address))

	if p.whitelist.contains(address) {
		p.logger.Debug("sender is whitelisted", zap.String("sender", address))
		return SenderWhitelisted
	}
	if p.blacklist.contains(address) {
		p.logger.Debug("sender is blacklisted", zap.String("sender", address))
		return SenderBlacklisted
	}
	return SenderNeutral
}
