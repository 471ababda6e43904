// Package fnmatch implements the exclude patterns accepted in site
// configuration. They follow `aws s3 sync --exclude` semantics:
//
//	*       matches everything, including path separators
//	?       matches any single character
//	[seq]   matches any character in seq
//	[!seq]  matches any character not in seq
//
// Patterns are matched against slash-separated paths relative to the site root.
//
// The pattern translation is based on Python's fnmatch module from the CPython repository.
// Original source: https://github.com/python/cpython/blob/main/Lib/fnmatch.py
//
// Copyright (c) 2001-2024 Python Software Foundation.
// All Rights Reserved.
//
// This Go port is licensed under the MIT License, but includes code derived from
// Python's fnmatch module which is licensed under the Python Software Foundation License Version 2.
package fnmatch

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var patternCache sync.Map

// Match reports whether name matches the shell pattern. Matching is case-sensitive.
func Match(pattern, name string) (bool, error) {
	re, err := compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(name), nil
}

// MatchAny reports whether name matches at least one of patterns.
func MatchAny(patterns []string, name string) (bool, error) {
	for _, pattern := range patterns {
		matched, err := Match(pattern, name)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// Validate returns an error for the first pattern that cannot be compiled.
func Validate(patterns []string) error {
	for _, pattern := range patterns {
		if _, err := compile(pattern); err != nil {
			return err
		}
	}
	return nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(translate(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
	}

	patternCache.Store(pattern, re)
	return re, nil
}

// translate converts a shell pattern into an anchored regular expression.
func translate(pattern string) string {
	var b strings.Builder
	b.WriteString("(?s:^")

	for i := 0; i < len(pattern); {
		c := pattern[i]
		i++

		switch c {
		case '*':
			for i < len(pattern) && pattern[i] == '*' {
				i++
			}
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '[':
			end := classEnd(pattern, i)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(charClass(pattern[i:end]))
			i = end + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	b.WriteString("$)")
	return b.String()
}

// classEnd returns the index of the ']' closing a class opened just before
// start, or -1. A ']' directly after '[' or '[!' is literal.
func classEnd(pattern string, start int) int {
	j := start
	if j < len(pattern) && pattern[j] == '!' {
		j++
	}
	if j < len(pattern) && pattern[j] == ']' {
		j++
	}
	for j < len(pattern) && pattern[j] != ']' {
		j++
	}
	if j >= len(pattern) {
		return -1
	}
	return j
}

func charClass(body string) string {
	if body == "!" {
		return "."
	}

	var b strings.Builder
	b.WriteByte('[')
	if body[0] == '!' {
		b.WriteByte('^')
		body = body[1:]
	}
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' || body[i] == ']' || body[i] == '[' {
			b.WriteByte('\\')
		}
		b.WriteByte(body[i])
	}
	b.WriteByte(']')
	return b.String()
}
