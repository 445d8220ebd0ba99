package finnhub_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"sectordash/internal/finnhub"
)

func TestFetchQuote(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "test-key", req.URL.Query().Get("token"))
			require.Equal(t, "AAPL", req.URL.Query().Get("symbol"))
			require.Contains(t, req.URL.Path, "/api/v1/quote")

			body := `{"c": 190.5, "pc": 188.0, "o": 189.0, "h": 191.2, "l": 188.4, "t": 1712000000}`
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewBufferString(body)),
			}, nil
		}).
		Times(1)

	// Arrange: setup a new client
	client, err := finnhub.New("test-key", finnhub.WithHTTPClient(httpClient))
	require.NoError(t, err)
	require.NotNil(t, client)

	// Act: call FetchQuote
	q, err := client.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	// Assert: payload is parsed and derived fields computed
	require.InEpsilon(t, 190.5, q.Close, 0.0001)
	require.InEpsilon(t, 188.0, q.PrevClose, 0.0001)
	require.InEpsilon(t, 189.0, q.Open, 0.0001)
	require.InEpsilon(t, 191.2, q.High, 0.0001)
	require.InEpsilon(t, 188.4, q.Low, 0.0001)
	require.InEpsilon(t, 2.5, q.Change, 0.0001)
	require.InEpsilon(t, 1.3298, q.PctChange, 0.0001)
	require.Equal(t, "finnhub", q.Provider)
}

func TestFetchQuote_ZeroPrevClose(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			body := `{"c": 10.0, "pc": 0, "o": 0, "h": 0, "l": 0}`
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewBufferString(body)),
			}, nil
		}).
		Times(1)

	client, err := finnhub.New("test-key", finnhub.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act: a zero previous close must not divide by zero
	q, err := client.FetchQuote(context.Background(), "NEWLISTING")
	require.NoError(t, err)
	require.InEpsilon(t, 10.0, q.Change, 0.0001)
	require.Zero(t, q.PctChange)
}

func TestFetchQuote_ErrRateLimited(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: exactly one attempt, never retried
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Body:       io.NopCloser(bytes.NewReader(nil)),
			}, nil
		}).
		Times(1)

	client, err := finnhub.New("test-key", finnhub.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.FetchQuote(context.Background(), "AAPL")
	require.ErrorIs(t, err, finnhub.ErrRateLimited)
}

func TestFetchQuote_ErrUnexpectedStatusCode(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(bytes.NewReader(nil)),
			}, nil
		}).
		Times(1)

	client, err := finnhub.New("test-key", finnhub.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.FetchQuote(context.Background(), "AAPL")
	require.Error(t, err)
	require.NotErrorIs(t, err, finnhub.ErrRateLimited)
}

func TestFetchQuote_ErrPerformingRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection reset")
		}).
		Times(1)

	client, err := finnhub.New("test-key", finnhub.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.FetchQuote(context.Background(), "AAPL")
	require.Error(t, err)
}

func TestFetchQuote_ErrMissingClose(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			// Finnhub returns {} for unknown symbols
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewBufferString(`{}`)),
			}, nil
		}).
		Times(1)

	client, err := finnhub.New("test-key", finnhub.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.FetchQuote(context.Background(), "NOSUCH")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing close")
}

func TestFetchQuote_ErrDecodingResponse(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewBufferString("invalid json")),
			}, nil
		}).
		Times(1)

	client, err := finnhub.New("test-key", finnhub.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.FetchQuote(context.Background(), "AAPL")
	require.Error(t, err)
}

func TestFetchQuote_WithBaseURL(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	baseURL := "http://localhost:8080"

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Truef(t, req.URL.String()[:len(baseURL)] == baseURL, "expected url to start with base url, received: %s", req.URL.String())
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewBufferString(`{"c": 1, "pc": 1, "o": 1, "h": 1, "l": 1}`)),
			}, nil
		}).
		Times(1)

	client, err := finnhub.New("test-key", finnhub.WithHTTPClient(httpClient), finnhub.WithBaseURL(baseURL))
	require.NoError(t, err)

	_, err = client.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)
}

func TestFetchProfile(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Contains(t, req.URL.Path, "/api/v1/stock/profile2")
			require.Equal(t, "AAPL", req.URL.Query().Get("symbol"))

			body := `{"name": "Apple Inc", "ticker": "AAPL", "marketCapitalization": 2901234.5}`
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewBufferString(body)),
			}, nil
		}).
		Times(1)

	client, err := finnhub.New("test-key", finnhub.WithHTTPClient(httpClient))
	require.NoError(t, err)

	p, err := client.FetchProfile(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, "Apple Inc", p.Name)
	require.InEpsilon(t, 2901234.5, p.MarketCap, 0.0001)
}

func TestFetchProfile_MissingMarketCap(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewBufferString(`{"name": "Some Corp"}`)),
			}, nil
		}).
		Times(1)

	client, err := finnhub.New("test-key", finnhub.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act: a profile without a market cap is missing data, not an error
	p, err := client.FetchProfile(context.Background(), "SOME")
	require.NoError(t, err)
	require.Zero(t, p.MarketCap)
}

func TestWithHeader(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "bar", req.Header.Get("foo"))
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewBufferString(`{"c": 1, "pc": 1, "o": 1, "h": 1, "l": 1}`)),
			}, nil
		}).
		Times(1)

	client, err := finnhub.New("test-key", finnhub.WithHTTPClient(httpClient), finnhub.WithHeader(http.Header{
		"foo": []string{"bar"},
	}))
	require.NoError(t, err)

	_, err = client.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)
}
