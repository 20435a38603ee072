package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Run level messages (info)
		"Starting pipeline run %s":               "パイプライン実行 %s を開始します",
		"Processed %d of %d frames (%d dropped)": "%d / %d フレームを処理しました (%d 件破棄)",
		"Contact sheet saved to %s":              "コンタクトシートを %s に保存しました",
		"Summary saved to %s":                    "サマリーを %s に保存しました",
		"Pipeline completed successfully":        "パイプラインが正常に完了しました",
		"Interrupted, shutting down...":          "中断されました。シャットダウン中...",

		// Registry
		"Registered %d built-in algorithms":  "%d 個の組み込みアルゴリズムを登録しました",
		"Replacing %s/%s algorithm %d (%s)":  "%s/%s のアルゴリズム %d (%s) を置き換えます",
		"User plugin not loaded: %v":         "ユーザープラグインは読み込まれませんでした: %v",
		"Loaded %d user algorithms":          "%d 個のユーザーアルゴリズムを読み込みました",
		"Algorithm %s/%s/%d panicked: %v":    "アルゴリズム %s/%s/%d がパニックしました: %v",

		// Plugin loader
		"Cannot open %s: %v":                          "%s を開けません: %v",
		"%s does not export the plugin entry points": "%s はプラグインのエントリポイントをエクスポートしていません",
		"Loaded %s with %d entries":                   "%s を読み込みました (%d 件)",
		"Unloaded %s":                                 "%s をアンロードしました",

		// Pipeline worker
		"Pipeline worker started":         "パイプラインワーカーを開始しました",
		"Pipeline worker stopped":         "パイプラインワーカーを停止しました",
		"Added stage %d: %s/%s/%d":        "ステージ %d を追加しました: %s/%s/%d",
		"Cleared %d stages":               "%d 個のステージを削除しました",
		"Stage %d (%s/%s/%d) failed: %s":  "ステージ %d (%s/%s/%d) が失敗しました: %s",
		"Display callback panicked: %v":   "表示コールバックがパニックしました: %v",

		// Display
		"Displayer %d panicked: %v":                         "表示先 %d がパニックしました: %v",
		"Failed to save stage output: %v":                   "ステージ出力の保存に失敗しました: %v",
		"Cannot keep output of camera %d stage %d: %v":      "カメラ %d ステージ %d の出力を保持できません: %v",
		"Cannot render camera %d stage %d: %v":              "カメラ %d ステージ %d を描画できません: %v",

		// Live view
		"Serving live view on %s":        "%s でライブビューを配信中",
		"Viewer connected. Total: %d":    "ビューアが接続しました。合計: %d",
		"Viewer disconnected. Total: %d": "ビューアが切断しました。合計: %d",
		"WebSocket upgrade error: %v":    "WebSocket アップグレードエラー: %v",
		"Viewer read error: %v":          "ビューア読み取りエラー: %v",
		"Error sending to viewer: %v":    "ビューアへの送信エラー: %v",
		"Cannot display %s: %v":          "%s を表示できません: %v",
		"Cannot encode %s: %v":           "%s をエンコードできません: %v",
		"Cannot marshal message: %v":     "メッセージを生成できません: %v",

		// Algorithm names
		"YUV422 to RGB888":     "YUV422 → RGB888",
		"YUV422 to BGR888":     "YUV422 → BGR888",
		"RGB888/BGR888 swap":   "RGB888/BGR888 入れ替え",
		"Gray8 to RGB888":      "Gray8 → RGB888",
		"RGB888 to Gray8":      "RGB888 → Gray8",
		"Bayer8 to RGB888":     "Bayer8 → RGB888",
		"RGB565 to RGB888":     "RGB565 → RGB888",
		"Gray16 to Gray8":      "Gray16 → Gray8",
		"Nearest neighbor":     "最近傍補間",
		"Approximate bilinear": "近似バイリニア補間",
		"Bilinear":             "バイリニア補間",
		"Catmull-Rom":          "Catmull-Rom 補間",
		"Select frame":         "フレーム選択",
		"Extract channel":      "チャンネル抽出",
		"Crop":                 "切り抜き",
	})
}
