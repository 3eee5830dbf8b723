// Package model はドメインモデルとリクエスト・レスポンスのDTOを定義する。
package model

import "time"

// User は上流サービスまたはIdPから得たユーザー情報を表す。
// このサービスでは永続化しない。
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session はセッショントークンから復元したログイン状態を表す。
type Session struct {
	User    User      `json:"user"`
	Expires time.Time `json:"expires"`
}
