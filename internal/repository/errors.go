package repository

import "errors"

// 見つからないを統一
var ErrNotFound = errors.New("not found")

// 一意制約に当たった（重複レビューなど）
var ErrDuplicate = errors.New("duplicate")
