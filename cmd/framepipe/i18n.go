// Package main provides localization for the framepipe CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Input":   "入力",
		"Output":  "出力先",
		"Plugin":  "プラグイン",
		"Logging": "ログ",

		// Root command
		"Run camera frames through a pipeline of image algorithms": "カメラフレームを画像アルゴリズムのパイプラインで処理",

		// Version command
		"Show version information": "バージョン情報を表示",
		"framepipe version %s":     "framepipe バージョン %s",

		// List command
		"List registered algorithms":                               "登録済みアルゴリズムを一覧表示",
		"Only this backend":                                        "このバックエンドのみ",
		"Only this module":                                         "このモジュールのみ",
		"(none)":                                                   "（なし）",
		"unknown backend %q (want one of %s)":                      "不明なバックエンド %q（%s のいずれか）",
		"unknown module %q (want one of %s)":                       "不明なモジュール %q（%s のいずれか）",
		"Extra directory searched for the user algorithm library": "ユーザーアルゴリズムライブラリを探す追加ディレクトリ",
		"File name of the user algorithm library":                 "ユーザーアルゴリズムライブラリのファイル名",
		"Do not load the user algorithm library":                  "ユーザーアルゴリズムライブラリを読み込まない",

		// Generate command
		"Write a color bar test frame":                     "カラーバーのテストフレームを書き出す",
		"Output TLV file path (required)":                  "出力TLVファイルパス（必須）",
		"Frame width":                                      "フレームの幅",
		"Frame height":                                     "フレームの高さ",
		"Pixel format":                                     "ピクセルフォーマット",
		"Component order (default depends on the format)": "成分の並び（デフォルトはフォーマットに依存）",
		"Camera id":                                        "カメラID",
		"Number of frames":                                 "フレーム数",
		"unknown format %q":                                "不明なフォーマット %q",
		"unknown pattern %q":                               "不明なパターン %q",
		"Wrote %s (%s)":                                    "%s を書き出しました (%s)",

		// Inspect command
		"Print the metadata of a saved image": "保存された画像のメタデータを表示",
		"Size":                                "サイズ",
		"Format":                              "フォーマット",
		"Pattern":                             "パターン",
		"Bits":                                "ビット数",
		"Memory align":                        "メモリ配置",
		"Camera":                              "カメラ",
		"Enabled":                             "有効",
		"Frames":                              "フレーム数",
		"Selected":                            "選択中",
		"Frame size":                          "フレームサイズ",

		// Export command
		"Convert one frame of a saved image to PNG or JPEG":        "保存された画像の1フレームをPNGまたはJPEGに変換",
		"Output image path; .jpg or .jpeg selects JPEG (required)": "出力画像パス。.jpg または .jpeg でJPEG（必須）",
		"Frame to export":      "書き出すフレーム",
		"JPEG quality (1-100)": "JPEG品質（1-100）",

		// Run command
		"Feed saved frames through a configured pipeline":    "保存されたフレームを設定済みパイプラインに流す",
		"Pipeline configuration file (required)":             "パイプライン設定ファイル（必須）",
		"Environment file read before the configuration":     "設定の前に読み込む環境変数ファイル",
		"Directory for stage outputs":                        "ステージ出力のディレクトリ",
		"Serve the live view on this address (e.g., :8080)":  "このアドレスでライブビューを配信（例: :8080）",
		"Keep serving the live view until interrupted":       "中断されるまでライブビューの配信を続ける",
		"Output execution summary to file (Markdown format)": "実行サマリーをファイルに出力（Markdown形式）",
		"Failed to write summary: %v":                        "サマリーの書き込みに失敗しました: %v",

		// Logging flags
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Suppress all log output":              "全てのログ出力を抑制",
	})
}
