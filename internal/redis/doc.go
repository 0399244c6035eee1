// Package redis wraps the go-redis client and implements the optional
// vote rate limiter. The application runs without Redis when REDIS_URL
// is unset; voting is simply unthrottled then.
package redis
