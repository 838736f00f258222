package domain

type ParseMode string

const (
	PlainText ParseMode = ""
	HTML      ParseMode = "HTML"
)
