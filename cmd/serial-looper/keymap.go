package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadKeymap reads 'code:value' lines. Values 0..127 are controller
// numbers; negative values pick a track (-1 selects track 0, -2 track 1,
// and so on). Blank lines and lines starting with '#' are skipped.
func LoadKeymap(filename string) (map[int]int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	keymap := map[int]int{}
	scanner := bufio.NewScanner(file)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s := strings.Split(line, ":")
		if len(s) != 2 {
			return nil, fmt.Errorf("%s:%d: want 'code:value'", filename, lineno)
		}
		code, err := strconv.Atoi(strings.TrimSpace(s[0]))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filename, lineno, err)
		}
		value, err := strconv.Atoi(strings.TrimSpace(s[1]))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filename, lineno, err)
		}
		keymap[code] = value
	}
	return keymap, scanner.Err()
}
