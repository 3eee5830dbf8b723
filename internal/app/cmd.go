package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMonitor はステータスモニターのみを起動することを示す。
	CommandMonitor Command = "monitor"
	// CommandStatus はヘルスチェックを1回実行して結果を出力することを示す。
	CommandStatus Command = "status"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "monitor":
		return CommandMonitor
	case "status":
		return CommandStatus
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
