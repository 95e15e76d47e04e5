package handler

import (
	"fmt"
	"net"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func cidrBlock(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, _, err := net.ParseCIDR(value)
	return err == nil
}

func ipAddress(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return net.ParseIP(value) != nil
}

// RegisterValidation Inspiration: https://blog.logrocket.com/gin-binding-in-go-a-tutorial-with-examples/
func RegisterValidation() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("error getting validation engine")
	}

	if err := v.RegisterValidation("cidrBlock", cidrBlock); err != nil {
		return err
	}
	return v.RegisterValidation("ipAddress", ipAddress)
}
