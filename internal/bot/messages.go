package bot

const (
	MsgUnexpectedErr  = `予期しないエラーが発生しました: %s`
	MsgSendPhoto      = "コーデの写真を送ってね。アイテムを解析して似ている商品を探すよ。"
	MsgPersonaChanged = "ナビゲーターを *%s* に切り替えたよ。"
	MsgUnknownCommand = "知らないコマンドだよ。/help で使い方を見てね。"
	MsgHelp           = `
		写真を送るとファッションアイテムを解析して、似ている商品をおすすめします。

		/kurisu - クリスに切り替え
		/marin - まりんに切り替え
		/help - この説明を表示
	`
)

const (
	MsgDownloadFailed   = "画像のダウンロードに失敗しました: %s"
	MsgAnalysisFailed   = "画像の解析に失敗しました: %s"
	MsgNoItemsDetected  = "ファッションアイテムが見つからなかったよ。全身が写った写真で試してみてね。"
	MsgDetectedItems    = "*検出したアイテム* (%d件)"
	MsgOverallStyle     = "全体のスタイル: %s (信頼度 %d%%)"
	MsgRecommendFailed  = "商品を見つけられなかったよ: %s"
	MsgMockProductsNote = "_商品検索が使えなかったので、サンプル商品を表示しています。_"
)
