package portal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	var sent bytes.Buffer
	replies := bufio.NewReader(bytes.NewBufferString(
		`{"ok":true,"intervals":[{"handle":"r1","start":"2025-11-03T08:00:00-03:00","end":"2025-11-03T08:30:00-03:00"}]}` + "\n"))

	resp, err := roundTrip(&sent, replies, request{Op: "fetch_intervals", Month: "2025-11"})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	require.Len(t, resp.Intervals, 1)
	assert.Equal(t, "r1", resp.Intervals[0].Handle)

	var req request
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(sent.Bytes()), &req))
	assert.Equal(t, "fetch_intervals", req.Op)
	assert.Equal(t, "2025-11", req.Month)
}

func TestRoundTrip_DriverError(t *testing.T) {
	var sent bytes.Buffer
	replies := bufio.NewReader(bytes.NewBufferString(`{"ok":false,"error":"login failed"}` + "\n"))

	resp, err := roundTrip(&sent, replies, request{Op: "authenticate"})
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, "login failed", resp.Error)
}

func TestRoundTrip_TruncatedStream(t *testing.T) {
	var sent bytes.Buffer
	replies := bufio.NewReader(bytes.NewBufferString(`{"ok":true`)) // no newline, driver died

	_, err := roundTrip(&sent, replies, request{Op: "authenticate"})
	assert.Error(t, err)
}

func TestSubmitExpense_RequestShape(t *testing.T) {
	req := request{Op: "submit_expense", Category: "toll", AmountCents: 1234, File: "/inbox/r.jpg"}
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"submit_expense","category":"toll","amount_cents":1234,"file":"/inbox/r.jpg"}`, string(payload))
}
