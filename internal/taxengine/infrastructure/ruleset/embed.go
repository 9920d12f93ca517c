package ruleset

import (
	_ "embed"

	"github.com/wyfcoding/vehicletax/internal/taxengine/domain"
)

//go:embed rules.yaml
var embeddedRules []byte

//go:embed reciprocity.yaml
var embeddedReciprocity []byte

// LoadEmbedded 加载随二进制内嵌的 50 州税则与互惠配对表。
// 任何校验失败都会返回 RegistryValidation 错误，调用方应在启动期 fail-fast。
func LoadEmbedded() (*domain.Registry, *domain.ReciprocityResolver, error) {
	reg, err := LoadRegistry(embeddedRules)
	if err != nil {
		return nil, nil, err
	}
	rr, err := LoadReciprocity(embeddedReciprocity)
	if err != nil {
		return nil, nil, err
	}
	return reg, rr, nil
}
