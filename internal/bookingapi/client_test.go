package bookingapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/nbenliogludev/go-booking-e2e/internal/booking"
	"github.com/nbenliogludev/go-booking-e2e/internal/config"
)

const baseURL = "https://booker.test"

func newTestClient(t *testing.T, opts ...Option) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	cfg := config.APIConfig{
		BaseURL:  baseURL,
		Username: "admin",
		Password: "password123",
		Timeout:  time.Second,
	}
	return New(cfg, append([]Option{WithTransport(transport)}, opts...)...), transport
}

func TestNewRateLimit(t *testing.T) {
	c, _ := newTestClient(t)
	assert.Equal(t, rate.Inf, c.limiter.Limit(), "zero rate is unlimited")

	limited := New(config.APIConfig{BaseURL: baseURL, RatePerSecond: 20})
	assert.Equal(t, rate.Limit(20), limited.limiter.Limit())
}

func TestAuthenticate(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder("POST", baseURL+"/auth", func(req *http.Request) (*http.Response, error) {
		var body authRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return httpmock.NewStringResponse(http.StatusBadRequest, ""), nil
		}
		if body.Username != "admin" || body.Password != "password123" {
			return httpmock.NewJsonResponse(http.StatusOK, map[string]string{"reason": "Bad credentials"})
		}
		return httpmock.NewJsonResponse(http.StatusOK, map[string]string{"token": "abc123"})
	})

	token, err := c.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
}

func TestAuthenticateBadCredentials(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder("POST", baseURL+"/auth",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]string{"reason": "Bad credentials"}))

	_, err := c.Authenticate(context.Background())
	require.ErrorIs(t, err, ErrAuthFailed)
	assert.Contains(t, err.Error(), "Bad credentials")
}

func TestAuthenticateNetworkError(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder("POST", baseURL+"/auth", httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := c.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetwork(err))

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "auth", netErr.Operation)
	assert.Equal(t, baseURL+"/auth", netErr.URL)
}

func TestListBookings(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder("GET", baseURL+"/booking",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, []booking.Summary{{ID: 3}, {ID: 7}}))

	ids, err := c.ListBookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7}, ids)
}

func TestSearchBookingsSendsDateFilter(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponderWithQuery("GET", baseURL+"/booking", "checkin=2026-10-15",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, []booking.Summary{{ID: 11}}))
	transport.RegisterResponderWithQuery("GET", baseURL+"/booking", "checkout=2026-10-16",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, []booking.Summary{}))

	ids, err := c.SearchBookings(context.Background(), booking.Filter{Checkin: "2026-10-15"})
	require.NoError(t, err)
	assert.Equal(t, []int{11}, ids)

	ids, err = c.SearchBookings(context.Background(), booking.Filter{Checkout: "2026-10-16"})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGetBooking(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder("GET", baseURL+"/booking/5",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, booking.Record{
			FirstName: "Sally",
			LastName:  "Brown",
			Dates:     booking.Dates{Checkin: "2026-01-01", Checkout: "2026-01-02"},
		}))
	transport.RegisterResponder("GET", baseURL+"/booking/6", httpmock.NewStringResponder(http.StatusNotFound, "Not Found"))

	rec, err := c.GetBooking(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.ID)
	assert.Equal(t, "Sally", rec.FirstName)
	assert.Equal(t, "2026-01-02", rec.Dates.Checkout)

	_, err = c.GetBooking(context.Background(), 6)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestDeleteBookingSendsTokenCookie(t *testing.T) {
	c, transport := newTestClient(t)
	var gotCookie string
	transport.RegisterResponder("DELETE", baseURL+"/booking/9", func(req *http.Request) (*http.Response, error) {
		gotCookie = req.Header.Get("Cookie")
		return httpmock.NewStringResponse(http.StatusCreated, "Created"), nil
	})

	require.NoError(t, c.DeleteBooking(context.Background(), 9, "abc123"))
	assert.Equal(t, "token=abc123", gotCookie)
}

func TestDeleteBookingFailureCarriesStatus(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder("DELETE", baseURL+"/booking/9", httpmock.NewStringResponder(http.StatusForbidden, "Forbidden"))

	err := c.DeleteBooking(context.Background(), 9, "stale")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "delete", apiErr.Operation)
}

func TestObserverSeesEveryRequest(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	c, transport := newTestClient(t, WithObserver(func(op string, status int) {
		mu.Lock()
		defer mu.Unlock()
		seen[op] = status
	}))
	transport.RegisterResponder("GET", baseURL+"/booking", httpmock.NewJsonResponderOrPanic(http.StatusOK, []booking.Summary{}))
	transport.RegisterResponder("POST", baseURL+"/auth", httpmock.NewErrorResponder(errors.New("down")))

	_, _ = c.ListBookings(context.Background())
	_, _ = c.Authenticate(context.Background())

	assert.Equal(t, map[string]int{"list": http.StatusOK, "auth": 0}, seen)
}

// fakeBooker is a minimal stateful restful-booker behind httpmock.
type fakeBooker struct {
	mu         sync.Mutex
	records    map[int]booking.Record
	failDelete map[int]bool
	token      string
}

func newFakeBooker(records map[int]booking.Record) *fakeBooker {
	return &fakeBooker{records: records, failDelete: map[int]bool{}, token: "tok"}
}

func (f *fakeBooker) register(transport *httpmock.MockTransport) {
	transport.RegisterResponder("POST", baseURL+"/auth", func(*http.Request) (*http.Response, error) {
		return httpmock.NewJsonResponse(http.StatusOK, map[string]string{"token": f.token})
	})
	transport.RegisterResponder("GET", baseURL+"/booking", func(*http.Request) (*http.Response, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		ids := make([]int, 0, len(f.records))
		for id := range f.records {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		out := make([]booking.Summary, 0, len(ids))
		for _, id := range ids {
			out = append(out, booking.Summary{ID: id})
		}
		return httpmock.NewJsonResponse(http.StatusOK, out)
	})
	transport.RegisterResponder("GET", `=~^https://booker\.test/booking/(\d+)\z`, func(req *http.Request) (*http.Response, error) {
		id := httpmock.MustGetSubmatchAsInt(req, 1)
		f.mu.Lock()
		defer f.mu.Unlock()
		rec, ok := f.records[int(id)]
		if !ok {
			return httpmock.NewStringResponse(http.StatusNotFound, "Not Found"), nil
		}
		return httpmock.NewJsonResponse(http.StatusOK, rec)
	})
	transport.RegisterResponder("DELETE", `=~^https://booker\.test/booking/(\d+)\z`, func(req *http.Request) (*http.Response, error) {
		id := int(httpmock.MustGetSubmatchAsInt(req, 1))
		if req.Header.Get("Cookie") != "token="+f.token {
			return httpmock.NewStringResponse(http.StatusForbidden, "Forbidden"), nil
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failDelete[id] {
			return httpmock.NewStringResponse(http.StatusMethodNotAllowed, "Method Not Allowed"), nil
		}
		delete(f.records, id)
		return httpmock.NewStringResponse(http.StatusCreated, "Created"), nil
	})
}

func sampleRecords() map[int]booking.Record {
	return map[int]booking.Record{
		1: {FirstName: "Sally", LastName: "Brown", AdditionalNeeds: "Breakfast"},
		2: {FirstName: "Jim", LastName: "Brown", AdditionalNeeds: "TEST451234"},
		3: {FirstName: "TestDelete", LastName: "User"},
		4: {FirstName: "Mark", LastName: "TEST"},
		5: {FirstName: "Eric", LastName: "Contest", AdditionalNeeds: "test"},
	}
}

func TestFindTestBookingsMatchesMarkerOnly(t *testing.T) {
	c, transport := newTestClient(t)
	newFakeBooker(sampleRecords()).register(transport)

	ids, err := c.FindTestBookings(context.Background(), "TEST")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, ids)
}

func TestFindTestBookingsSkipsUnreadableRecords(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder("GET", baseURL+"/booking",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, []booking.Summary{{ID: 1}, {ID: 2}}))
	transport.RegisterResponder("GET", baseURL+"/booking/1", httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))
	transport.RegisterResponder("GET", baseURL+"/booking/2",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, booking.Record{FirstName: "test", LastName: "User"}))

	ids, err := c.FindTestBookings(context.Background(), "TEST")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids)
}

func TestFindTestBookingsFractionalPrice(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder("GET", baseURL+"/booking",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, []booking.Summary{{ID: 1}}))
	transport.RegisterResponder("GET", baseURL+"/booking/1", httpmock.NewStringResponder(http.StatusOK,
		`{"firstname":"Jim","lastname":"TEST123456","totalprice":150.5,"depositpaid":true,`+
			`"bookingdates":{"checkin":"2026-10-15","checkout":"2026-10-16"}}`))

	ids, err := c.FindTestBookings(context.Background(), "TEST")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids)
}

func TestFindTestBookingsListFailure(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder("GET", baseURL+"/booking", httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))

	_, err := c.FindTestBookings(context.Background(), "TEST")
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
}

func TestCleanupTestBookingsIsIdempotent(t *testing.T) {
	c, transport := newTestClient(t)
	fake := newFakeBooker(sampleRecords())
	fake.register(transport)

	n, err := c.CleanupTestBookings(context.Background(), "TEST")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = c.CleanupTestBookings(context.Background(), "TEST")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Len(t, fake.records, 2)
}

func TestCleanupTestBookingsSkipsFailedDeletes(t *testing.T) {
	c, transport := newTestClient(t)
	fake := newFakeBooker(sampleRecords())
	fake.failDelete[3] = true
	fake.register(transport)

	n, err := c.CleanupTestBookings(context.Background(), "TEST")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, fake.records, 3)
}

func TestCleanupTestBookingsNothingToDeleteSkipsAuth(t *testing.T) {
	c, transport := newTestClient(t)
	newFakeBooker(map[int]booking.Record{1: {FirstName: "Sally", LastName: "Brown"}}).register(transport)

	n, err := c.CleanupTestBookings(context.Background(), "TEST")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, transport.GetCallCountInfo()["POST "+baseURL+"/auth"])
}

func TestCleanupTestBookingsAuthFailure(t *testing.T) {
	c, transport := newTestClient(t)
	fake := newFakeBooker(sampleRecords())
	fake.register(transport)
	transport.RegisterResponder("POST", baseURL+"/auth",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]string{"reason": "Bad credentials"}))

	n, err := c.CleanupTestBookings(context.Background(), "TEST")
	require.ErrorIs(t, err, ErrAuthFailed)
	assert.Zero(t, n)
	assert.Len(t, fake.records, 5)
}
