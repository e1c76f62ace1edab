package storage

// Storage keys. The names match the EmailZen browser extension's
// chrome.storage schema so data exported from the extension can be
// dropped into the store directory and imported as-is.
const (
	KeyRules            = "regras"
	KeyStatistics       = "estatisticas"
	KeyHistory          = "historico"
	KeyLabelCache       = "labelsCache"
	KeyLabelCacheStamp  = "labelsCacheAtualizado"
	KeySuggestions      = "sugestoesInteligentes"
	KeySuggestionsStamp = "sugestoesSalvasEm"
	KeySchedule         = "configVerificacao"
	KeyToken            = "oauthToken"
	KeyTokenStamp       = "tokenSalvoEm"
)

// Store is the key-value persistence collaborator. Values are stored as
// JSON; Get reports whether the key existed.
type Store interface {
	Get(key string, out any) (bool, error)
	Set(key string, value any) error
	Remove(keys ...string) error
}
