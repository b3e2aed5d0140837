package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"philcali.me/chefbot/internal/data"
)

type EncryptMode func(cipher.Block) (cipher.AEAD, error)

// EncryptionTokenMarshaler seals paging tokens with a key derived from a
// server secret and the scope, so a token minted for one user cannot be
// replayed for another.
type EncryptionTokenMarshaler struct {
	Mode   EncryptMode
	Secret []byte
}

var _ TokenMarshaler = (*EncryptionTokenMarshaler)(nil)

func NewGCM(secret []byte) *EncryptionTokenMarshaler {
	return &EncryptionTokenMarshaler{
		Mode:   cipher.NewGCM,
		Secret: secret,
	}
}

type sealedToken struct {
	Ciphertext []byte `json:"c"`
	Nonce      []byte `json:"n"`
}

func _convertLastKeyToToken(lastKey map[string]types.AttributeValue) ([]byte, error) {
	if len(lastKey) == 0 {
		return nil, nil
	}
	token := make(data.NextToken, len(lastKey))
	for key, value := range lastKey {
		switch v := value.(type) {
		case *types.AttributeValueMemberS:
			token[key] = map[string]string{"S": v.Value}
		case *types.AttributeValueMemberN:
			token[key] = map[string]string{"N": v.Value}
		default:
			return nil, fmt.Errorf("unsupported key attribute %s: %T", key, value)
		}
	}
	return json.Marshal(token)
}

func _convertTokenToLastKey(token []byte) (map[string]types.AttributeValue, error) {
	var nextToken data.NextToken
	if err := json.Unmarshal(token, &nextToken); err != nil {
		return nil, err
	}
	lastKey := make(map[string]types.AttributeValue, len(nextToken))
	for field, innerMap := range nextToken {
		if sv, ok := innerMap["S"]; ok {
			lastKey[field] = &types.AttributeValueMemberS{Value: sv}
		} else if nv, ok := innerMap["N"]; ok {
			lastKey[field] = &types.AttributeValueMemberN{Value: nv}
		}
	}
	return lastKey, nil
}

func (em *EncryptionTokenMarshaler) _aead(scope string) (cipher.AEAD, error) {
	mac := hmac.New(sha256.New, em.Secret)
	mac.Write([]byte(scope))
	block, err := aes.NewCipher(mac.Sum(nil))
	if err != nil {
		return nil, err
	}
	return em.Mode(block)
}

func (em *EncryptionTokenMarshaler) Marshal(scope string, lastKey map[string]types.AttributeValue) ([]byte, error) {
	serialized, err := _convertLastKeyToToken(lastKey)
	if err != nil || serialized == nil {
		return nil, err
	}
	aead, err := em._aead(scope)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(sealedToken{
		Ciphertext: aead.Seal(nil, nonce, serialized, []byte(scope)),
		Nonce:      nonce,
	})
	if err != nil {
		return nil, err
	}
	encoded := make([]byte, base64.RawURLEncoding.EncodedLen(len(payload)))
	base64.RawURLEncoding.Encode(encoded, payload)
	return encoded, nil
}

func (em *EncryptionTokenMarshaler) Unmarshal(scope string, token []byte) (map[string]types.AttributeValue, error) {
	if len(token) == 0 {
		return nil, nil
	}
	decoded := make([]byte, base64.RawURLEncoding.DecodedLen(len(token)))
	n, err := base64.RawURLEncoding.Decode(decoded, token)
	if err != nil {
		return nil, err
	}
	var sealed sealedToken
	if err := json.Unmarshal(decoded[:n], &sealed); err != nil {
		return nil, err
	}
	aead, err := em._aead(scope)
	if err != nil {
		return nil, err
	}
	if len(sealed.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("malformed paging token")
	}
	plaintext, err := aead.Open(nil, sealed.Nonce, sealed.Ciphertext, []byte(scope))
	if err != nil {
		return nil, err
	}
	return _convertTokenToLastKey(plaintext)
}
