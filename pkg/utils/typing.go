package utils

import (
	"iter"
	"unicode"
	"unicode/utf8"
)

// TypingChunks 把文本切成逐字输出的片段，连续空白与前一个字符合并，
// 保证拼接后与原文一致。
func TypingChunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := 0
		for start < len(text) {
			_, size := utf8.DecodeRuneInString(text[start:])
			end := start + size
			for end < len(text) {
				next, nextSize := utf8.DecodeRuneInString(text[end:])
				if !unicode.IsSpace(next) {
					break
				}
				end += nextSize
			}
			if !yield(text[start:end]) {
				return
			}
			start = end
		}
	}
}
