package exasol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteIdentAlreadyQuoted(t *testing.T) {
	c := &Conn{log: newDefaultLogger()}
	assert.Equal(t, "[test]", c.QuoteIdent("[test]"))
	assert.Equal(t, `"test"`, c.QuoteIdent(`"test"`))
}

func TestQuoteIdentKeyword(t *testing.T) {
	keywordLock.Lock()
	keywords = map[string]bool{"select": true}
	keywordLock.Unlock()

	c := &Conn{log: newDefaultLogger()}
	assert.Equal(t, "[SELECT]", c.QuoteIdent("SELect"))
	assert.Equal(t, "[select]", c.QuoteIdent("SELect", true))
}

func TestQuoteIdentSpecialCharacters(t *testing.T) {
	keywordLock.Lock()
	keywords = map[string]bool{"select": true}
	keywordLock.Unlock()

	c := &Conn{log: newDefaultLogger()}
	assert.Equal(t, "[-MYID]", c.QuoteIdent("-myid"))
	assert.Equal(t, "okAY", c.QuoteIdent("okAY"))
}

func TestQuoteStr(t *testing.T) {
	assert.Equal(t, "my''str", QuoteStr("my'str"))
}

func TestTranspose(t *testing.T) {
	data := [][]interface{}{{1, "a"}, {2, "b"}, {3, "c"}}
	expect := [][]interface{}{{1, 2, 3}, {"a", "b", "c"}}
	assert.Equal(t, expect, Transpose(data))
}

func TestTransposeToChan(t *testing.T) {
	ch := make(chan FetchResult, 4)
	transposeToChan(ch, [][]interface{}{{1, 2}, {"a", "b"}})
	close(ch)

	var rows [][]interface{}
	for res := range ch {
		rows = append(rows, res.Data)
	}
	assert.Equal(t, [][]interface{}{{1, "a"}, {2, "b"}}, rows)
}

func TestTransposeToChanEmptyMatrix(t *testing.T) {
	ch := make(chan FetchResult, 1)
	transposeToChan(ch, nil)
	close(ch)
	_, ok := <-ch
	assert.False(t, ok, "an empty matrix sends no rows")
}
