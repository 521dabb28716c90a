// Package mysql manages the MySQL connection pool opened at process start
// and closed at shutdown. The gateway endpoints themselves persist nothing;
// the pool is kept alive for operational checks and future persistence needs.
package mysql
