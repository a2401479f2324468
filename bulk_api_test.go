package exasol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableImportSQL(t *testing.T) {
	c := &Conn{log: newDefaultLogger()}
	keywordLock.Lock()
	keywords = map[string]bool{}
	keywordLock.Unlock()

	sql := c.tableImportSQL("myschema", "mytable")
	assert.Equal(t, "IMPORT INTO myschema.mytable FROM CSV AT '%s' FILE 'data.csv'", sql)
}

func TestTableExportSQL(t *testing.T) {
	c := &Conn{log: newDefaultLogger()}
	keywordLock.Lock()
	keywords = map[string]bool{}
	keywordLock.Unlock()

	sql := c.tableExportSQL("myschema", "mytable")
	assert.Equal(t, "EXPORT myschema.mytable INTO CSV AT '%s' FILE 'data.csv'", sql)
}

func TestStreamExecuteRejectsNilChannel(t *testing.T) {
	c := &Conn{log: newDefaultLogger()}
	err := c.StreamExecute("IMPORT INTO t FROM CSV AT '%s' FILE 'data.csv'", nil)
	assert.Error(t, err)
}
