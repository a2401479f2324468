/*
    AUTHOR

	Grant Street Group <developers@grantstreet.com>

	COPYRIGHT AND LICENSE

	This software is Copyright (c) 2019 by Grant Street Group.
	This is free software, licensed under:
	    MIT License
*/

package exasol

import "fmt"

// executePrepStmt binds parameterized data against sql. Unlike the
// websocket API's createPreparedStatement/closePreparedStatement pair,
// which is designed to be reused across many executions of the same
// handle, this client prepares, executes once, and closes within a
// single call: the statement handle is never cached across calls to
// Execute/FetchChan.
func (c *Conn) executePrepStmt(
	sql string,
	binds [][]interface{},
	schema string,
	dataTypes []DataType,
	isColumnar bool,
) (*execRes, error) {
	ps, err := c.createPrepStmt(schema, sql, dataTypes)
	if err != nil {
		return nil, err
	}
	defer c.closePrepStmt(ps.sth)

	data := binds
	if !isColumnar {
		data = Transpose(binds)
	}
	if len(ps.columns) > 0 && len(data) != len(ps.columns) {
		return nil, &ProtocolError{
			Msg: fmt.Sprintf("bind data has %d columns, statement expects %d", len(data), len(ps.columns)),
		}
	}

	req := &execPrepStmt{
		Command:         "executePreparedStatement",
		Attributes:      &Attributes{CurrentSchema: schema},
		StatementHandle: ps.sth,
		NumColumns:      len(data),
		NumRows:         numBindRows(data),
		Columns:         ps.columns,
		Data:            data,
	}
	res := &execRes{}
	err = c.send(req, res)
	return res, err
}

func numBindRows(columnarData [][]interface{}) int {
	if len(columnarData) == 0 {
		return 0
	}
	return len(columnarData[0])
}

func (c *Conn) createPrepStmt(schema, sql string, dataTypes []DataType) (*prepStmt, error) {
	c.log.Debug("preparing statement: ", sql)
	req := &createPrepStmtReq{
		Command:    "createPreparedStatement",
		Attributes: &Attributes{CurrentSchema: schema},
		SqlText:    sql,
	}
	res := &createPrepStmtRes{}
	if err := c.send(req, res); err != nil {
		return nil, fmt.Errorf("unable to create prepared statement: %w", err)
	}
	if res.ResponseData == nil {
		return nil, &ProtocolError{Msg: "createPreparedStatement response missing responseData"}
	}

	columns := res.ResponseData.ParameterData.Columns
	if len(dataTypes) > 0 {
		// EXASOL-2138: the server sometimes reports a parameter data type
		// that doesn't round-trip cleanly; callers can override it.
		for i := range columns {
			if i < len(dataTypes) {
				columns[i].DataType = dataTypes[i]
			}
		}
	}

	return &prepStmt{
		sth:     res.ResponseData.StatementHandle,
		columns: columns,
	}, nil
}

func (c *Conn) closePrepStmt(sth int) {
	c.log.Debug("closing statement handle ", sth)
	req := &closePrepStmt{
		Command:         "closePreparedStatement",
		StatementHandle: sth,
	}
	if err := c.send(req, &response{}); err != nil {
		c.log.Warning("unable to close prepared statement: ", err)
	}
}
