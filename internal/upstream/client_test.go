//go:build unit

package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rdv-gateway/internal/session"
	"rdv-gateway/pkg/cerror"
	"rdv-gateway/pkg/config"
)

const TestRefreshedToken = "efgh.efgh.efgh"

func setupSession(t *testing.T, accessToken string) (session.Store, string) {
	sessionStore := session.NewStore(session.NewMemoryStorage(), session.NewMemoryStorage())
	sessionId, err := sessionStore.Save(context.Background(), &session.Identity{
		Id:           TestUserId,
		Role:         session.RoleUser,
		Email:        TestEmail,
		AccessToken:  accessToken,
		RefreshToken: TestRefreshToken,
	}, false)
	require.NoError(t, err)

	return sessionStore, sessionId
}

func refreshedPartial() *session.Partial {
	refreshedToken := TestRefreshedToken
	return &session.Partial{
		AccessToken: &refreshedToken,
	}
}

func TestNewClient(t *testing.T) {
	upstreamClient := NewClient(config.UpstreamConfig{}, nil, nil)

	assert.Implements(t, (*Client)(nil), upstreamClient)
}

func TestClient_Do(t *testing.T) {
	mockController := gomock.NewController(t)
	defer mockController.Finish()

	t.Run("happy path", func(t *testing.T) {
		var upstreamHits int32
		upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&upstreamHits, 1)
			assert.Equal(t, "Bearer "+TestAccessToken, r.Header.Get("Authorization"))
			assert.Equal(t, "/api/appointments", r.URL.Path)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[]`))
		}))
		defer upstreamServer.Close()

		sessionStore, sessionId := setupSession(t, TestAccessToken)
		upstreamClient := NewClient(
			config.UpstreamConfig{BaseUrl: upstreamServer.URL},
			sessionStore,
			NewMockAuthenticator(mockController),
		)

		response, err := upstreamClient.Do(context.Background(), sessionId, &Request{
			Method: http.MethodGet,
			Path:   "/api/appointments",
		})

		require.NoError(t, err)
		defer response.Body.Close()
		assert.Equal(t, http.StatusOK, response.StatusCode)
		assert.Equal(t, int32(1), atomic.LoadInt32(&upstreamHits))
	})

	t.Run("when no session is held should never reach the upstream", func(t *testing.T) {
		var upstreamHits int32
		upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&upstreamHits, 1)
		}))
		defer upstreamServer.Close()

		sessionStore := session.NewStore(session.NewMemoryStorage(), session.NewMemoryStorage())
		upstreamClient := NewClient(
			config.UpstreamConfig{BaseUrl: upstreamServer.URL},
			sessionStore,
			NewMockAuthenticator(mockController),
		)

		_, err := upstreamClient.Do(context.Background(), "unknown-session", &Request{
			Method: http.MethodGet,
			Path:   "/api/appointments",
		})

		assert.ErrorIs(t, err, cerror.ErrorUnauthenticated)
		assert.Equal(t, int32(0), atomic.LoadInt32(&upstreamHits))
	})

	t.Run("when upstream returns 401 should refresh and retry once", func(t *testing.T) {
		var upstreamHits int32
		upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&upstreamHits, 1)
			if r.Header.Get("Authorization") != "Bearer "+TestRefreshedToken {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			w.WriteHeader(http.StatusOK)
		}))
		defer upstreamServer.Close()

		sessionStore, sessionId := setupSession(t, TestAccessToken)

		mockAuthenticator := NewMockAuthenticator(mockController)
		mockAuthenticator.EXPECT().
			RefreshAccessToken(gomock.Any(), TestRefreshToken).
			Return(refreshedPartial(), nil)

		upstreamClient := NewClient(
			config.UpstreamConfig{BaseUrl: upstreamServer.URL, RefreshTimeout: time.Second},
			sessionStore,
			mockAuthenticator,
		)

		response, err := upstreamClient.Do(context.Background(), sessionId, &Request{
			Method: http.MethodGet,
			Path:   "/api/appointments",
		})

		require.NoError(t, err)
		defer response.Body.Close()
		assert.Equal(t, http.StatusOK, response.StatusCode)
		assert.Equal(t, int32(2), atomic.LoadInt32(&upstreamHits))

		accessToken := sessionStore.AccessToken(context.Background(), sessionId)
		assert.Equal(t, TestRefreshedToken, accessToken)
	})

	t.Run("when retried request is rejected again should pass the 401 through", func(t *testing.T) {
		var upstreamHits int32
		upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&upstreamHits, 1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer upstreamServer.Close()

		sessionStore, sessionId := setupSession(t, TestAccessToken)

		mockAuthenticator := NewMockAuthenticator(mockController)
		mockAuthenticator.EXPECT().
			RefreshAccessToken(gomock.Any(), TestRefreshToken).
			Return(refreshedPartial(), nil)

		upstreamClient := NewClient(
			config.UpstreamConfig{BaseUrl: upstreamServer.URL, RefreshTimeout: time.Second},
			sessionStore,
			mockAuthenticator,
		)

		response, err := upstreamClient.Do(context.Background(), sessionId, &Request{
			Method: http.MethodGet,
			Path:   "/api/appointments",
		})

		require.NoError(t, err)
		defer response.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
		assert.Equal(t, int32(2), atomic.LoadInt32(&upstreamHits))
	})

	t.Run("when refresh is rejected should clear the session and surface the original 401", func(t *testing.T) {
		upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer upstreamServer.Close()

		sessionStore, sessionId := setupSession(t, TestAccessToken)

		mockAuthenticator := NewMockAuthenticator(mockController)
		mockAuthenticator.EXPECT().
			RefreshAccessToken(gomock.Any(), TestRefreshToken).
			Return(nil, cerror.ErrorRefreshRejected)

		upstreamClient := NewClient(
			config.UpstreamConfig{BaseUrl: upstreamServer.URL, RefreshTimeout: time.Second},
			sessionStore,
			mockAuthenticator,
		)

		response, err := upstreamClient.Do(context.Background(), sessionId, &Request{
			Method: http.MethodGet,
			Path:   "/api/appointments",
		})

		require.NoError(t, err)
		defer response.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, response.StatusCode)

		record, err := sessionStore.Get(context.Background(), sessionId)
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("when refresh endpoint is unreachable should keep the session", func(t *testing.T) {
		upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer upstreamServer.Close()

		sessionStore, sessionId := setupSession(t, TestAccessToken)

		mockAuthenticator := NewMockAuthenticator(mockController)
		mockAuthenticator.EXPECT().
			RefreshAccessToken(gomock.Any(), TestRefreshToken).
			Return(nil, cerror.ErrorUpstreamUnreachable)

		upstreamClient := NewClient(
			config.UpstreamConfig{BaseUrl: upstreamServer.URL, RefreshTimeout: time.Second},
			sessionStore,
			mockAuthenticator,
		)

		response, err := upstreamClient.Do(context.Background(), sessionId, &Request{
			Method: http.MethodGet,
			Path:   "/api/appointments",
		})

		require.NoError(t, err)
		defer response.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, response.StatusCode)

		record, err := sessionStore.Get(context.Background(), sessionId)
		require.NoError(t, err)
		assert.NotNil(t, record)
	})

	t.Run("when access token is already expired should refresh before the first request", func(t *testing.T) {
		var upstreamHits int32
		upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&upstreamHits, 1)
			assert.Equal(t, "Bearer "+TestRefreshedToken, r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusOK)
		}))
		defer upstreamServer.Close()

		expiredToken := signedTokenWithExpiry(t, time.Now().UTC().Add(-time.Hour))
		sessionStore, sessionId := setupSession(t, expiredToken)

		mockAuthenticator := NewMockAuthenticator(mockController)
		mockAuthenticator.EXPECT().
			RefreshAccessToken(gomock.Any(), TestRefreshToken).
			Return(refreshedPartial(), nil)

		upstreamClient := NewClient(
			config.UpstreamConfig{BaseUrl: upstreamServer.URL, RefreshTimeout: time.Second},
			sessionStore,
			mockAuthenticator,
		)

		response, err := upstreamClient.Do(context.Background(), sessionId, &Request{
			Method: http.MethodGet,
			Path:   "/api/appointments",
		})

		require.NoError(t, err)
		defer response.Body.Close()
		assert.Equal(t, http.StatusOK, response.StatusCode)
		assert.Equal(t, int32(1), atomic.LoadInt32(&upstreamHits))
	})

	t.Run("when proactive refresh already ran should not refresh again on a 401", func(t *testing.T) {
		var upstreamHits int32
		upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&upstreamHits, 1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer upstreamServer.Close()

		expiredToken := signedTokenWithExpiry(t, time.Now().UTC().Add(-time.Hour))
		sessionStore, sessionId := setupSession(t, expiredToken)

		mockAuthenticator := NewMockAuthenticator(mockController)
		mockAuthenticator.EXPECT().
			RefreshAccessToken(gomock.Any(), TestRefreshToken).
			Return(refreshedPartial(), nil).
			Times(1)

		upstreamClient := NewClient(
			config.UpstreamConfig{BaseUrl: upstreamServer.URL, RefreshTimeout: time.Second},
			sessionStore,
			mockAuthenticator,
		)

		response, err := upstreamClient.Do(context.Background(), sessionId, &Request{
			Method: http.MethodGet,
			Path:   "/api/appointments",
		})

		require.NoError(t, err)
		defer response.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
		assert.Equal(t, int32(1), atomic.LoadInt32(&upstreamHits))
	})

	t.Run("when expired token cannot be refreshed should clear the session and return error", func(t *testing.T) {
		var upstreamHits int32
		upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&upstreamHits, 1)
		}))
		defer upstreamServer.Close()

		expiredToken := signedTokenWithExpiry(t, time.Now().UTC().Add(-time.Hour))
		sessionStore, sessionId := setupSession(t, expiredToken)

		mockAuthenticator := NewMockAuthenticator(mockController)
		mockAuthenticator.EXPECT().
			RefreshAccessToken(gomock.Any(), TestRefreshToken).
			Return(nil, cerror.ErrorRefreshRejected)

		upstreamClient := NewClient(
			config.UpstreamConfig{BaseUrl: upstreamServer.URL, RefreshTimeout: time.Second},
			sessionStore,
			mockAuthenticator,
		)

		_, err := upstreamClient.Do(context.Background(), sessionId, &Request{
			Method: http.MethodGet,
			Path:   "/api/appointments",
		})

		assert.ErrorIs(t, err, cerror.ErrorRefreshRejected)
		assert.Equal(t, int32(0), atomic.LoadInt32(&upstreamHits))

		record, err := sessionStore.Get(context.Background(), sessionId)
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("when concurrent calls hit an expired token should share one refresh", func(t *testing.T) {
		const concurrentCalls = 8

		upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer upstreamServer.Close()

		expiredToken := signedTokenWithExpiry(t, time.Now().UTC().Add(-time.Hour))
		sessionStore, sessionId := setupSession(t, expiredToken)

		mockAuthenticator := NewMockAuthenticator(mockController)
		mockAuthenticator.EXPECT().
			RefreshAccessToken(gomock.Any(), TestRefreshToken).
			DoAndReturn(func(ctx context.Context, refreshToken string) (*session.Partial, error) {
				// hold the refresh open so every caller joins it in flight
				time.Sleep(200 * time.Millisecond)
				return refreshedPartial(), nil
			}).
			Times(1)

		upstreamClient := NewClient(
			config.UpstreamConfig{BaseUrl: upstreamServer.URL, RefreshTimeout: time.Second},
			sessionStore,
			mockAuthenticator,
		)

		start := make(chan struct{})
		var waitGroup sync.WaitGroup
		for i := 0; i < concurrentCalls; i++ {
			waitGroup.Add(1)
			go func() {
				defer waitGroup.Done()
				<-start

				response, err := upstreamClient.Do(context.Background(), sessionId, &Request{
					Method: http.MethodGet,
					Path:   "/api/appointments",
				})
				assert.NoError(t, err)
				if response != nil {
					assert.Equal(t, http.StatusOK, response.StatusCode)
					_ = response.Body.Close()
				}
			}()
		}
		close(start)
		waitGroup.Wait()
	})
}
