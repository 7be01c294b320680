package yaroles

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/YaCodeDev/GoYaBotCore/yaencoding"
	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding user id -> MessagePack encoded roles.
const DefaultRedisKey = "yabot:roles"

// RedisRepository stores the roles of every user as one field of a hash.
type RedisRepository struct {
	client *redis.Client
	key    string
}

// NewRedisRepository wraps an already configured client.
//
// Example:
//
//	repo := yaroles.NewRedisRepository(client, yaroles.DefaultRedisKey)
func NewRedisRepository(client *redis.Client, key string) *RedisRepository {
	if key == "" {
		key = DefaultRedisKey
	}

	return &RedisRepository{client: client, key: key}
}

// NewRedisClient parses url, dials it and performs an initial PING.
//
// Example:
//
//	client, err := yaroles.NewRedisClient(ctx, "redis://localhost:6379/0", log)
func NewRedisClient(ctx context.Context, url string, log yalogger.Logger) (*redis.Client, yaerrors.Error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, yaerrors.FromError(http.StatusBadRequest, err, "[REDIS] bad url")
	}

	log.Infof("Redis connecting to addr %s", options.Addr)

	client := redis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, yaerrors.FromError(http.StatusInternalServerError, err, "[REDIS] failed to connect")
	}

	log.Infof("Redis connected to addr %s", options.Addr)

	return client, nil
}

func (r *RedisRepository) Load(ctx context.Context) (map[int64][]string, yaerrors.Error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			errors.Join(err, ErrRedisLoadRoles),
			fmt.Sprintf("[REDIS] failed `HGETALL` by `%s`", r.key),
		)
	}

	roles := make(map[int64][]string, len(fields))

	for field, value := range fields {
		userID, parseErr := strconv.ParseInt(field, 10, 64)
		if parseErr != nil {
			return nil, yaerrors.FromError(
				http.StatusInternalServerError,
				errors.Join(parseErr, ErrRedisLoadRoles),
				fmt.Sprintf("[REDIS] bad user id `%s` in `%s`", field, r.key),
			)
		}

		list, decodeErr := yaencoding.DecodeMessagePack[[]string]([]byte(value))
		if decodeErr != nil {
			return nil, decodeErr.Wrap(fmt.Sprintf("[REDIS] bad roles of user %d", userID))
		}

		roles[userID] = *list
	}

	return roles, nil
}

func (r *RedisRepository) Grant(ctx context.Context, userID int64, role string) yaerrors.Error {
	return r.update(ctx, userID, func(roles []string) []string {
		if slices.Contains(roles, role) {
			return roles
		}

		return append(roles, role)
	})
}

func (r *RedisRepository) Revoke(ctx context.Context, userID int64, role string) yaerrors.Error {
	return r.update(ctx, userID, func(roles []string) []string {
		return slices.DeleteFunc(roles, func(other string) bool {
			return other == role
		})
	})
}

// update rewrites the roles of one user inside a WATCH transaction.
func (r *RedisRepository) update(ctx context.Context, userID int64, change func([]string) []string) yaerrors.Error {
	field := strconv.FormatInt(userID, 10)

	var yaErr yaerrors.Error

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		var roles []string

		value, err := tx.HGet(ctx, r.key, field).Bytes()

		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			decoded, decodeErr := yaencoding.DecodeMessagePack[[]string](value)
			if decodeErr != nil {
				yaErr = decodeErr

				return decodeErr
			}

			roles = *decoded
		}

		roles = change(roles)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(roles) == 0 {
				return pipe.HDel(ctx, r.key, field).Err()
			}

			encoded, encodeErr := yaencoding.EncodeMessagePack(roles)
			if encodeErr != nil {
				yaErr = encodeErr

				return encodeErr
			}

			return pipe.HSet(ctx, r.key, field, encoded).Err()
		})

		return err
	}, r.key)

	if yaErr != nil {
		return yaErr.Wrap(fmt.Sprintf("[REDIS] failed to update roles of user %d", userID))
	}

	if err != nil {
		return yaerrors.FromError(
			http.StatusInternalServerError,
			errors.Join(err, ErrRedisSaveRoles),
			fmt.Sprintf("[REDIS] failed to update roles of user %d", userID),
		)
	}

	return nil
}
