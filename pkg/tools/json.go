package tools

import jsoniter "github.com/json-iterator/go"

func ToJson(v interface{}) string {
	bytes, _ := jsoniter.ConfigFastest.Marshal(v)
	return string(bytes)
}
