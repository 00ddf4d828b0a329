// Package codecheck runs heuristic checks over generated discord.py extension modules and
// applies light, line based enhancements. It does not parse Python; shapes it does not
// recognize are left alone.
package codecheck

import (
	"regexp"
	"strings"
)

// DefaultElevatedPermissions are permission names that deserve a manual gating review
var DefaultElevatedPermissions = []string{
	"administrator",
	"manage_guild",
	"manage_roles",
	"manage_channels",
	"ban_members",
	"kick_members",
}

var (
	frameworkImportPattern = regexp.MustCompile(`(?m)^\s*(import\s+discord\b|from\s+discord(\.ext)?\s+import\b)`)
	cogClassPattern        = regexp.MustCompile(`(?m)^\s*class\s+\w+\s*\(\s*commands\.Cog\b`)
	syncDefPattern         = regexp.MustCompile(`(?m)^(\s*)def\s+(\w+)\s*\(`)
	setupPattern           = regexp.MustCompile(`(?m)^\s*(async\s+)?def\s+setup\s*\(\s*bot\b`)
	tryPattern             = regexp.MustCompile(`(?m)^\s*try\s*:`)
	exceptPattern          = regexp.MustCompile(`(?m)^\s*except\b`)
	commandDecorator       = regexp.MustCompile(`(?m)^\s*@(commands\.command|commands\.hybrid_command|app_commands\.command|bot\.command)\b`)
	cooldownDecorator      = regexp.MustCompile(`(?m)^\s*@(commands|app_commands\.checks)\.(cooldown|dynamic_cooldown)\b`)
	dynamicEvalPattern     = regexp.MustCompile(`\b(eval|exec)\s*\(`)
	docstringPattern       = regexp.MustCompile(`"""|'''`)
	commentPattern         = regexp.MustCompile(`(?m)^\s*#`)
)

type checkFunc func(code string) []Issue

// Validator checks code. The zero value is not usable; use New.
type Validator struct {
	elevatedPermissions []string
	permissionPatterns  []*regexp.Regexp
	checks              []checkFunc
}

// Option configures a Validator
type Option func(*Validator)

// WithElevatedPermissions replaces the permission names reported as elevated
func WithElevatedPermissions(perms []string) Option {
	return func(v *Validator) {
		v.elevatedPermissions = append([]string{}, perms...)
	}
}

// New creates a Validator
func New(opts ...Option) *Validator {
	v := &Validator{
		elevatedPermissions: DefaultElevatedPermissions,
	}
	for _, opt := range opts {
		opt(v)
	}

	for _, perm := range v.elevatedPermissions {
		v.permissionPatterns = append(v.permissionPatterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(perm)+`\b`))
	}

	v.checks = []checkFunc{
		checkFrameworkImport,
		checkCogClass,
		checkAsyncFunctions,
		checkSetup,
		checkErrorHandling,
		v.checkPermissions,
		checkCooldown,
		checkDynamicEval,
		checkDocumentation,
	}
	return v
}

// Validate runs every check independently and scores the result:
// max(0, 100 - 20*errors - 5*warnings)
func (v *Validator) Validate(code string) *Report {
	report := &Report{
		Errors:      []Issue{},
		Warnings:    []Issue{},
		Suggestions: []Issue{},
	}

	for _, check := range v.checks {
		for _, issue := range check(code) {
			switch issue.Severity {
			case SeverityError:
				report.Errors = append(report.Errors, issue)
			case SeverityWarning:
				report.Warnings = append(report.Warnings, issue)
			default:
				report.Suggestions = append(report.Suggestions, issue)
			}
		}
	}

	report.IsValid = len(report.Errors) == 0
	report.Score = max(0, 100-20*len(report.Errors)-5*len(report.Warnings))
	return report
}

func checkFrameworkImport(code string) []Issue {
	if frameworkImportPattern.MatchString(code) {
		return nil
	}
	return []Issue{{
		Severity: SeverityError,
		Category: CategoryStructure,
		Message:  "Missing discord import (import discord or from discord.ext import commands)",
	}}
}

func checkCogClass(code string) []Issue {
	if cogClassPattern.MatchString(code) {
		return nil
	}
	return []Issue{{
		Severity: SeverityError,
		Category: CategoryStructure,
		Message:  "Missing cog class (class Name(commands.Cog))",
	}}
}

// checkAsyncFunctions reports plain def functions other than dunder methods.
// One warning covers all of them.
func checkAsyncFunctions(code string) []Issue {
	var names []string
	for _, m := range syncDefPattern.FindAllStringSubmatch(code, -1) {
		name := m[2]
		if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Category: CategoryAsync,
		Message:  "Functions should be async: " + strings.Join(names, ", "),
	}}
}

func checkSetup(code string) []Issue {
	if setupPattern.MatchString(code) {
		return nil
	}
	return []Issue{{
		Severity: SeverityError,
		Category: CategoryStructure,
		Message:  "Missing setup(bot) entry point",
	}}
}

func checkErrorHandling(code string) []Issue {
	if tryPattern.MatchString(code) && exceptPattern.MatchString(code) {
		return nil
	}
	return []Issue{{
		Severity: SeveritySuggestion,
		Category: CategoryErrorHandling,
		Message:  "Add try/except error handling to commands",
	}}
}

func (v *Validator) checkPermissions(code string) []Issue {
	var found []string
	for i, pattern := range v.permissionPatterns {
		if pattern.MatchString(code) {
			found = append(found, v.elevatedPermissions[i])
		}
	}
	if len(found) == 0 {
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Category: CategoryPermissions,
		Message:  "Uses elevated permissions (" + strings.Join(found, ", ") + "); double check the commands are gated",
	}}
}

func checkCooldown(code string) []Issue {
	if !commandDecorator.MatchString(code) || cooldownDecorator.MatchString(code) {
		return nil
	}
	return []Issue{{
		Severity: SeveritySuggestion,
		Category: CategoryRateLimit,
		Message:  "Add @commands.cooldown to commands to limit abuse",
	}}
}

func checkDynamicEval(code string) []Issue {
	if !dynamicEvalPattern.MatchString(code) {
		return nil
	}
	return []Issue{{
		Severity: SeveritySuggestion,
		Category: CategorySecurity,
		Message:  "Remove eval/exec; evaluating dynamic code is a security risk",
	}}
}

func checkDocumentation(code string) []Issue {
	if docstringPattern.MatchString(code) || commentPattern.MatchString(code) {
		return nil
	}
	return []Issue{{
		Severity: SeveritySuggestion,
		Category: CategoryDocumentation,
		Message:  "Add a docstring or comments describing the plugin",
	}}
}
